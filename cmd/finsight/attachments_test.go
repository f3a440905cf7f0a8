package main

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestLoadAttachmentsResolvesRelativePathsAndSkipsMissing(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/work/notes/nvda.md", []byte("  Blackwell ramp in H2.\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := afero.WriteFile(fsys, "/abs/big.txt", []byte(strings.Repeat("x", maxAttachmentBytes+10)), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got := loadAttachments(fsys, []string{"notes/nvda.md", "missing.md", "/abs/big.txt"}, "/work")
	if len(got) != 2 {
		t.Fatalf("attachments = %d, want 2", len(got))
	}
	if got[0].Name != "notes/nvda.md" || got[0].Text != "Blackwell ramp in H2." {
		t.Fatalf("first attachment = %+v", got[0])
	}
	if !strings.HasSuffix(got[1].Text, "\n[truncated]") || len(got[1].Text) != maxAttachmentBytes+len("\n[truncated]") {
		t.Fatalf("large attachment not truncated, len=%d", len(got[1].Text))
	}
}

func TestWithAttachmentsKeepsQuestionFirst(t *testing.T) {
	if got := withAttachments("How is NVDA doing?", nil); got != "How is NVDA doing?" {
		t.Fatalf("no attachments: %q", got)
	}
	got := withAttachments("How is NVDA doing?", []attachment{{Name: "nvda.md", Text: "Blackwell ramp in H2."}})
	want := "How is NVDA doing?\n\nAttachment nvda.md:\nBlackwell ramp in H2."
	if got != want {
		t.Fatalf("withAttachments = %q, want %q", got, want)
	}
}
