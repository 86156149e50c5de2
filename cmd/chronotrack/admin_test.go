package main

import (
	"strings"
	"testing"
	"time"

	"github.com/chronotrack-io/chronotrack/internal/domain/organization"
)

func TestWriteOrgTable(t *testing.T) {
	orgs := []organization.Organization{
		{
			ID:           "ORG-20260115-A1B2",
			Name:         "Acme Corp",
			DatabaseName: "chronotrack_tenant_1",
			LicensePlan:  "trial",
			LicenseSeats: 5,
			CreatedAt:    time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:           "ORG-20260301-C3D4",
			Name:         "Globex",
			DatabaseName: "chronotrack_tenant_2",
			LicensePlan:  "pro",
			LicenseSeats: 50,
			CreatedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		},
	}

	var buf strings.Builder
	if err := writeOrgTable(&buf, orgs); err != nil {
		t.Fatalf("writeOrgTable: %v", err)
	}
	out := buf.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines:\n%s", len(lines), out)
	}
	for _, col := range []string{"ID", "NAME", "DATABASE", "PLAN", "SEATS", "CREATED"} {
		if !strings.Contains(lines[0], col) {
			t.Errorf("header missing column %q: %s", col, lines[0])
		}
	}
	for _, want := range []string{"ORG-20260115-A1B2", "Acme Corp", "chronotrack_tenant_1", "trial", "2026-01-15"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("first row missing %q: %s", want, lines[1])
		}
	}
	if !strings.Contains(lines[2], "50") || !strings.Contains(lines[2], "pro") {
		t.Errorf("second row missing plan/seats: %s", lines[2])
	}
}
