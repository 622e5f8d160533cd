package source

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bambriz/diagsink/internal/sink"
)

func collect(t *testing.T, input string) []sink.Record {
	t.Helper()
	var recs []sink.Record
	err := NewReader(strings.NewReader(input)).Subscribe(context.Background(), func(r sink.Record) {
		recs = append(recs, r)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return recs
}

func TestReader_Subscribe(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []sink.Record
	}{
		{
			name:  "two columns",
			input: "read;{\"ms\":1.2}\nwrite;{\"ms\":3.4}\n",
			want: []sink.Record{
				{Name: "read", Payload: `{"ms":1.2}`},
				{Name: "write", Payload: `{"ms":3.4}`},
			},
		},
		{
			name:  "payload keeps extra semicolons",
			input: "op;a;b;c\n",
			want:  []sink.Record{{Name: "op", Payload: "a;b;c"}},
		},
		{
			name:  "no separator becomes empty payload",
			input: "bare-line\n",
			want:  []sink.Record{{Name: "bare-line", Payload: ""}},
		},
		{
			name:  "blank lines skipped",
			input: "a;1\n\n\nb;2\n",
			want:  []sink.Record{{Name: "a", Payload: "1"}, {Name: "b", Payload: "2"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(t, tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("record %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReader_SubscribeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewReader(strings.NewReader("a;1\nb;2\n")).Subscribe(ctx, func(sink.Record) {
		t.Error("handler must not run after cancellation")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
