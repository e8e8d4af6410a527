package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Ledger column names, in the order they are written.
const (
	FieldSuggestedName   = "nome_sugerido"
	FieldSummary         = "resumo"
	FieldCategory        = "categoria"
	FieldDestinationPath = "caminho_destino"
	FieldTags            = "tags"
	FieldDocumentType    = "tipo_documento"
	FieldDuplicateOf     = "duplicado_de"
	FieldAnalyzedAt      = "data_analise"
	FieldSourceFileName  = "arquivo_origem"
)

// AnalysisRecord is one ledger row: the service's answer for a single document plus
// when it was analyzed and which remote file it came from.
type AnalysisRecord struct {
	SuggestedName   string    // Natural key of the ledger
	Summary         string    // 3 to 10 sentences
	Category        string    // e.g. Clientes, Projetos, Financeiro
	DestinationPath string    // Suggested destination folder
	Tags            []string  // Keywords, in the order the service returned them
	DocumentType    string    // e.g. 1ª edição, cópia, final
	DuplicateOf     string    // Possible original, empty when none
	AnalyzedAt      time.Time // Analysis timestamp
	SourceFileName  string    // Name of the remote file that was analyzed
}

// Fields returns the record's field names, used as the ledger header row.
func (r AnalysisRecord) Fields() []string {
	return []string{
		FieldSuggestedName,
		FieldSummary,
		FieldCategory,
		FieldDestinationPath,
		FieldTags,
		FieldDocumentType,
		FieldDuplicateOf,
		FieldAnalyzedAt,
		FieldSourceFileName,
	}
}

// Values returns the record as a row aligned with Fields.
func (r AnalysisRecord) Values() []string {
	return []string{
		r.SuggestedName,
		r.Summary,
		r.Category,
		r.DestinationPath,
		EncodeTags(r.Tags),
		r.DocumentType,
		r.DuplicateOf,
		r.AnalyzedAt.Format(time.RFC3339),
		r.SourceFileName,
	}
}

// EncodeTags stores tags as a JSON array so a single cell keeps their order.
func EncodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return strings.Join(tags, ";")
	}
	return string(data)
}

// DecodeTags is the inverse of EncodeTags. Cells that are not a JSON array are split on ';'.
func DecodeTags(cell string) []string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(cell), &tags); err == nil {
		return tags
	}
	for _, t := range strings.Split(cell, ";") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ParseAnalyzedAt reads a data_analise cell. RFC 3339 and the ISO form without a zone
// are accepted; anything else yields the zero time.
func ParseAnalyzedAt(cell string) time.Time {
	cell = strings.TrimSpace(cell)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, cell); err == nil {
			return t
		}
	}
	return time.Time{}
}
