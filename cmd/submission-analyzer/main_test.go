// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pdiddy/submission-analyzer/pkg/types"
)

func TestBatchID(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "argument", args: []string{" entrega2 "}, want: "entrega2"},
		{name: "prompted", stdin: "entrega1\n", want: "entrega1"},
		{name: "prompted without newline", stdin: "entrega3", want: "entrega3"},
		{name: "empty answer", stdin: "\n", wantErr: true},
		{name: "no input", stdin: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := batchID(tt.args, strings.NewReader(tt.stdin), &out)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("batchID = %q, want %q", got, tt.want)
			}
			if len(tt.args) == 0 && !strings.Contains(out.String(), "Batch identifier") {
				t.Errorf("prompt not written: %q", out.String())
			}
		})
	}
}

func TestSummaryBox(t *testing.T) {
	box := summaryBox(types.RunSummary{
		RunID:       "run-1",
		Batch:       "entrega2",
		Total:       3,
		Succeeded:   []string{"a", "c"},
		Failed:      []types.ProjectFailure{{ProjectID: "b", Reason: "api unavailable"}},
		SuccessRate: "66.7%",
	})
	for _, want := range []string{"run-1", "entrega2", "66.7%", "b: api unavailable", "Consolidated: no"} {
		if !strings.Contains(box, want) {
			t.Errorf("summary box missing %q:\n%s", want, box)
		}
	}
}
