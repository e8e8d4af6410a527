package ledger

import (
	"context"

	"docsweep/pkg/models"
)

// ContentTypeCSV is sent with the raw ledger upload.
const ContentTypeCSV = "text/csv"

// Snapshot is the full ledger file at the moment of a sync.
type Snapshot struct {
	Name     string     // Base name of the ledger file
	Data     []byte     // Raw file contents
	Header   []string   // First row
	Rows     [][]string // Every row after the header
	ParseErr error      // Set when Data is not valid CSV; Header and Rows are then empty
}

// Records maps the rows back to records using the header for column positions.
func (s *Snapshot) Records() []models.AnalysisRecord {
	columns := columnIndex(s.Header)
	get := func(row []string, field string) string {
		i, ok := columns[field]
		if !ok {
			return ""
		}
		return cell(row, i)
	}

	records := make([]models.AnalysisRecord, 0, len(s.Rows))
	for _, row := range s.Rows {
		records = append(records, models.AnalysisRecord{
			SuggestedName:   get(row, models.FieldSuggestedName),
			Summary:         get(row, models.FieldSummary),
			Category:        get(row, models.FieldCategory),
			DestinationPath: get(row, models.FieldDestinationPath),
			Tags:            models.DecodeTags(get(row, models.FieldTags)),
			DocumentType:    get(row, models.FieldDocumentType),
			DuplicateOf:     get(row, models.FieldDuplicateOf),
			AnalyzedAt:      models.ParseAnalyzedAt(get(row, models.FieldAnalyzedAt)),
			SourceFileName:  get(row, models.FieldSourceFileName),
		})
	}
	return records
}

// Mirror receives the ledger snapshot on every sync. token is the run's drive token;
// mirrors that authenticate on their own ignore it.
type Mirror interface {
	Name() string
	Push(ctx context.Context, token string, snap *Snapshot) error
}

// Uploader writes a named file into the remote application folder, overwriting it.
type Uploader interface {
	Upload(ctx context.Context, token, name, contentType string, data []byte) error
}

// DriveMirror uploads the raw CSV to the remote drive.
type DriveMirror struct {
	uploader   Uploader
	remoteName string
}

// NewDriveMirror creates a mirror that stores the ledger as remoteName. An empty
// remoteName keeps the local file's base name.
func NewDriveMirror(uploader Uploader, remoteName string) *DriveMirror {
	return &DriveMirror{uploader: uploader, remoteName: remoteName}
}

// Name implements Mirror.
func (m *DriveMirror) Name() string {
	return "onedrive"
}

// Push implements Mirror.
func (m *DriveMirror) Push(ctx context.Context, token string, snap *Snapshot) error {
	name := m.remoteName
	if name == "" {
		name = snap.Name
	}
	return m.uploader.Upload(ctx, token, name, ContentTypeCSV, snap.Data)
}
