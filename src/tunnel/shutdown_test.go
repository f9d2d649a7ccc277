package tunnel

import (
	"errors"
	"testing"
)

func TestShutdownFirstCancelWins(t *testing.T) {
	s := newShutdown()
	first := errors.New("first")
	second := errors.New("second")
	if err := s.Cancel(first); err != nil {
		t.Fatalf("first Cancel returned %v, want nil", err)
	}
	if err := s.Cancel(second); err != first {
		t.Fatalf("second Cancel returned %v, want %v", err, first)
	}
	if s.Error() != first {
		t.Fatalf("Error() = %v, want %v", s.Error(), first)
	}
}

func TestShutdownFinishedClosesOnce(t *testing.T) {
	s := newShutdown()
	select {
	case <-s.Finished():
		t.Fatal("Finished() closed before Cancel")
	default:
	}
	s.Cancel(nil)
	select {
	case <-s.Finished():
	default:
		t.Fatal("Finished() not closed after Cancel")
	}
	if !s.Fired() {
		t.Fatal("Fired() = false after Cancel")
	}
}
