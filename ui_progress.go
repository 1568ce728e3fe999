// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/cheggaaa/pb/v3"

	"github.com/JMit-dev/myrientDL/pkg/myrient"
)

// barProgress drives a single cheggaaa/pb bar from a myrient.ProgressFunc
// stream. It assumes a single file is in flight at a time, which holds for
// the single-URL fetch tool this file backs.
type barProgress struct {
	bar *pb.ProgressBar
}

func newBarProgress() *barProgress {
	return &barProgress{}
}

func (p *barProgress) Handler() myrient.ProgressFunc {
	return func(ev myrient.ProgressEvent) {
		switch ev.Event {
		case "file_start":
			tmpl := fmt.Sprintf(`{{ "%s:" }} {{ bar . }} {{percent . }} {{speed . "%%s/s"}} {{etime .}}`, ev.Path)
			p.bar = pb.New64(ev.Total).Set(pb.Bytes, true).SetTemplateString(tmpl)
			p.bar.Start()
		case "file_progress":
			if p.bar != nil {
				p.bar.SetCurrent(ev.Bytes)
			}
		case "retry":
			if p.bar == nil {
				fmt.Fprintf(os.Stderr, "retry %s (attempt %d): %s\n", ev.Path, ev.Attempt, ev.Message)
			}
		case "file_done":
			if p.bar != nil {
				p.bar.SetCurrent(p.bar.Total())
				p.bar.Finish()
			}
		case "error":
			if p.bar != nil {
				p.bar.Finish()
			}
			fmt.Fprintf(os.Stderr, "error: %s\n", ev.Message)
		}
	}
}
