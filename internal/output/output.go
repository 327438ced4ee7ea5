// Package output holds the consumers of published export text.
package output

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Publisher receives each newly published text. Publish is only called from
// the main loop.
type Publisher interface {
	Publish(text string) error
}

// StatusReporter is implemented by publishers that show a status alongside
// the text.
type StatusReporter interface {
	SetStatus(s Status, detail string)
}

type Status string

const (
	StatusIdle   Status = "idle"
	StatusReady  Status = "ready"
	StatusDenied Status = "denied"
	StatusError  Status = "error"
)

// Display keeps the latest published text, the way a text box would.
type Display struct {
	mu       sync.RWMutex
	text     string
	status   Status
	detail   string
	onChange []func(text string)
	onStatus []func(s Status, detail string)
}

func NewDisplay() *Display {
	return &Display{status: StatusIdle}
}

func (d *Display) Publish(text string) error {
	d.mu.Lock()
	d.text = text
	d.status = StatusReady
	d.detail = ""
	subs := append([]func(string){}, d.onChange...)
	d.mu.Unlock()

	for _, fn := range subs {
		fn(text)
	}
	return nil
}

func (d *Display) SetStatus(s Status, detail string) {
	d.mu.Lock()
	d.status = s
	d.detail = detail
	subs := append([]func(Status, string){}, d.onStatus...)
	d.mu.Unlock()

	for _, fn := range subs {
		fn(s, detail)
	}
}

func (d *Display) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

func (d *Display) Status() (Status, string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status, d.detail
}

func (d *Display) OnChange(fn func(text string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = append(d.onChange, fn)
}

func (d *Display) OnStatus(fn func(s Status, detail string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onStatus = append(d.onStatus, fn)
}

// WriterSink writes every published text, newline terminated, to W.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Publish(text string) error {
	_, err := fmt.Fprintln(s.W, text)
	return err
}

type multi []Publisher

// Multi publishes to each publisher in turn and joins their errors. Status
// updates reach every publisher that reports status.
func Multi(publishers ...Publisher) Publisher {
	return multi(publishers)
}

func (m multi) Publish(text string) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) SetStatus(s Status, detail string) {
	for _, p := range m {
		if r, ok := p.(StatusReporter); ok {
			r.SetStatus(s, detail)
		}
	}
}

// ReportStatus forwards to p when it reports status.
func ReportStatus(p Publisher, s Status, detail string) {
	if r, ok := p.(StatusReporter); ok {
		r.SetStatus(s, detail)
	}
}
