// Package export serializes sessions for download, clipboard copy, and
// archival. The JSON document round-trips losslessly: parsing an export
// reconstructs an identical session.
package export

import (
	"fmt"
	"strings"
	"time"

	"supercritical/internal/scl"
	"supercritical/internal/util/jsonutil"
)

// Document is the on-disk export envelope.
type Document struct {
	Session    scl.Session `json:"session"`
	ExportedAt int64       `json:"exportedAt"`
}

// Marshal renders the export document as indented JSON.
func Marshal(sess scl.Session, exportedAt time.Time) ([]byte, error) {
	doc := Document{Session: sess.Clone(), ExportedAt: exportedAt.UnixMilli()}
	data, err := jsonutil.MarshalNoEscapeIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: encode session: %w", err)
	}
	return data, nil
}

// Parse decodes an export document back into a session.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := jsonutil.UnmarshalRaw(data, &doc); err != nil {
		return Document{}, fmt.Errorf("export: decode document: %w", err)
	}
	if doc.Session.ID == "" {
		return Document{}, fmt.Errorf("export: document has no session id")
	}
	return doc, nil
}

// ClipboardText renders the bare session as compact JSON for copy-paste.
func ClipboardText(sess scl.Session) (string, error) {
	data, err := jsonutil.MarshalNoEscape(sess)
	if err != nil {
		return "", fmt.Errorf("export: encode session: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// FileName derives the suggested download name for a session export.
func FileName(sess scl.Session, exportedAt time.Time) string {
	id := sess.ID
	if len(id) > 12 {
		id = id[:12]
	}
	return fmt.Sprintf("scl-session-%s-%s.json", id, exportedAt.Format("20060102"))
}
