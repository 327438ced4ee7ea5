package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/brk3/healthdata/internal/healthstore"
)

var categoryLabels = map[healthstore.Category]string{
	healthstore.ActivitySummary:    "activity summaries",
	healthstore.ActiveEnergyBurned: "active energy burned",
	healthstore.ExerciseTime:       "exercise time",
	healthstore.StandHour:          "stand hours",
}

// terminalPrompter asks on out and reads a y/n answer from in.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p terminalPrompter) Confirm(_ context.Context, categories []healthstore.Category) (bool, error) {
	labels := make([]string, 0, len(categories))
	for _, c := range categories {
		if l, ok := categoryLabels[c]; ok {
			labels = append(labels, l)
		} else {
			labels = append(labels, string(c))
		}
	}
	fmt.Fprintf(p.out, "Allow healthdata to read %s? [y/N] ", strings.Join(labels, ", "))

	answer, err := p.in.ReadString('\n')
	if err != nil && answer == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func prompterFor(yes bool, in *bufio.Reader, out io.Writer) healthstore.Prompter {
	if yes {
		return healthstore.StaticPrompter(true)
	}
	return terminalPrompter{in: in, out: out}
}
