package attachments

import (
	"context"
	"strings"
	"testing"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		name    string
		txID    string
		file    string
		want    string
		wantErr bool
	}{
		{"plain", "tx-1", "receipt.pdf", "attachments/tx-1/receipt.pdf", false},
		{"strips directories", "tx-1", "/home/me/scans/receipt.pdf", "attachments/tx-1/receipt.pdf", false},
		{"strips windows directories", "tx-1", `C:\scans\receipt.pdf`, "attachments/tx-1/receipt.pdf", false},
		{"empty id", "", "receipt.pdf", "", true},
		{"id with slash", "tx/1", "receipt.pdf", "", true},
		{"empty name", "tx-1", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ObjectName(tt.txID, tt.file)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ObjectName(%q, %q) expected error, got %q", tt.txID, tt.file, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ObjectName(%q, %q) unexpected error: %v", tt.txID, tt.file, err)
			}
			if got != tt.want {
				t.Errorf("ObjectName(%q, %q) = %q, want %q", tt.txID, tt.file, got, tt.want)
			}
		})
	}
}

func TestObjectNameSharesPrefix(t *testing.T) {
	name, err := ObjectName("tx-9", "a.png")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(name, Prefix("tx-9")) {
		t.Errorf("%q does not start with %q", name, Prefix("tx-9"))
	}
	if strings.HasPrefix(name, Prefix("tx-")) {
		t.Errorf("prefix of tx- must not match objects of tx-9")
	}
}

func TestParseURI(t *testing.T) {
	bucket, txID, name, err := ParseURI("gs://ledger-files/attachments/tx-1/receipt.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bucket != "ledger-files" || txID != "tx-1" || name != "receipt.pdf" {
		t.Errorf("got (%q, %q, %q)", bucket, txID, name)
	}

	for _, bad := range []string{
		"https://example.com/file",
		"gs://bucket",
		"gs://bucket/other/tx-1/file",
		"gs://bucket/attachments/tx-1",
		"gs://bucket/attachments//file",
	} {
		if _, _, _, err := ParseURI(bad); err == nil {
			t.Errorf("ParseURI(%q) expected error", bad)
		}
	}
}

func TestNop(t *testing.T) {
	var s Store = Nop{}
	if err := s.RemoveAttachments(context.Background(), "tx-1"); err != nil {
		t.Errorf("RemoveAttachments: %v", err)
	}
	if _, err := s.Upload(context.Background(), "tx-1", "a", strings.NewReader("x")); err == nil {
		t.Error("Upload on Nop should fail")
	}
}
