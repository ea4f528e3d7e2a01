package errlog

import (
	"errors"
	"testing"
)

func TestRecordAndReadAll(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if err := s.Record("plan-1", "advanceOne", errors.New("boom")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record("plan-2", "tickBusActions", errors.New("kaboom")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].PlanID != "plan-1" || entries[0].Message != "boom" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Stage != "tickBusActions" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
}

func TestRecordNilErrorIsNoop(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Record("plan-1", "stage", nil); err != nil {
		t.Fatalf("Record(nil): %v", err)
	}
	entries, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %+v", entries)
	}
}

func TestReadAllMissingFile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	entries, err := s.ReadAll()
	if err != nil || entries != nil {
		t.Fatalf("ReadAll on missing file = %+v, %v", entries, err)
	}
}
