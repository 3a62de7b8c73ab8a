package utils

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

type fakeReporter struct {
	failed bool
}

func (f *fakeReporter) Helper()               {}
func (f *fakeReporter) Logf(string, ...any)   {}
func (f *fakeReporter) Errorf(string, ...any) { f.failed = true }

// TestGoroutineLeakDetector tests the leak detector itself
func TestGoroutineLeakDetector(t *testing.T) {
	t.Run("NoLeak", func(t *testing.T) {
		detector := NewGoroutineLeakDetector(t)
		detector.Start()

		ch := make(chan struct{})
		go func() {
			ch <- struct{}{}
		}()
		<-ch

		detector.Check()
	})

	t.Run("WaitsForExit", func(t *testing.T) {
		detector := NewGoroutineLeakDetector(t)
		detector.Start()

		go func() {
			time.Sleep(300 * time.Millisecond)
		}()

		detector.Check()
	})

	t.Run("DetectsLeak", func(t *testing.T) {
		reporter := &fakeReporter{}
		detector := NewGoroutineLeakDetector(reporter).
			SetStabilizeDelay(10 * time.Millisecond).
			SetTimeout(200 * time.Millisecond)
		detector.Start()

		stop := make(chan struct{})
		go func() {
			<-stop
		}()

		detector.Check()
		close(stop)

		if !reporter.failed {
			t.Error("Expected leak detector to fail but it didn't")
		}
	})
}

func TestMarshalObject(t *testing.T) {
	tests := []struct {
		name    string
		in      interface{}
		want    string
		wantErr bool
	}{
		{name: "nil", in: nil, want: ""},
		{name: "map", in: map[string]int{"a": 1}, want: `{"a":1}`},
		{name: "struct", in: struct {
			Q string `json:"q"`
		}{"x"}, want: `{"q":"x"}`},
		{name: "raw", in: json.RawMessage(`{"z": true}`), want: `{"z": true}`},
		{name: "bytes", in: []byte(`{}`), want: `{}`},
		{name: "array", in: []int{1}, wantErr: true},
		{name: "string", in: "x", wantErr: true},
		{name: "broken raw", in: json.RawMessage(`{"a":`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalObject(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func ExampleValidateObject() {
	fmt.Println(ValidateObject([]byte(`{"type":"object"}`)) == nil)
	fmt.Println(ValidateObject([]byte(`[1,2]`)) == nil)
	// Output:
	// true
	// false
}
