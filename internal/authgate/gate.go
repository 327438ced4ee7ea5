// Package authgate asks the health store for read access before the first
// range query.
package authgate

import (
	"context"

	"github.com/brk3/healthdata/internal/healthstore"
	"github.com/brk3/healthdata/internal/logger"
	"github.com/brk3/healthdata/internal/mainloop"
	"github.com/brk3/healthdata/internal/output"
)

type Outcome string

const (
	Granted Outcome = "granted"
	Denied  Outcome = "denied"
	Failed  Outcome = "failed"
)

const deniedNotice = "read access to activity data was not granted; results will be empty until it is allowed"

// Gate requests the fixed read categories once and then always hands off to
// the next step, whatever the answer.
type Gate struct {
	store healthstore.Store
	loop  *mainloop.Loop
	out   output.Publisher
	then  func(ctx context.Context)
}

func New(store healthstore.Store, loop *mainloop.Loop, out output.Publisher, then func(ctx context.Context)) *Gate {
	return &Gate{store: store, loop: loop, out: out, then: then}
}

// RequestAccess never fails. Store errors are logged and treated as a denial
// for the session.
func (g *Gate) RequestAccess(ctx context.Context) Outcome {
	outcome := Granted
	ok, err := g.store.RequestAuthorization(ctx, healthstore.ReadCategories)
	switch {
	case err != nil:
		outcome = Failed
		logger.Warn("Authorization request failed, continuing without access", "error", err)
	case !ok:
		outcome = Denied
		logger.Info("Read access denied")
	default:
		logger.Debug("Read access granted")
	}

	if outcome != Granted {
		g.loop.Post(func() {
			output.ReportStatus(g.out, output.StatusDenied, deniedNotice)
		})
	}

	if g.then != nil {
		g.then(ctx)
	}
	return outcome
}
