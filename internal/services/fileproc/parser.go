package fileproc

import (
	"encoding/csv"
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrNoRecords is returned when a file parses but yields no usable rows.
var ErrNoRecords = errors.New("no valid records found in file")

// Canonical column names. Headers are mapped onto these via aliases.
var columnAliases = map[string][]string{
	"recording_title":  {"recording title", "track title", "track", "song title", "song"},
	"recording_artist": {"recording artist", "artist", "performer", "singer"},
	"work_title":       {"work title", "composition", "composition title", "title"},
	"songwriter":       {"songwriter", "writer", "composer", "author", "writers", "songwriters"},
}

// ParsedRecord is one usable row from an uploaded file. RowNumber is 1-based
// over the kept data rows.
type ParsedRecord struct {
	RowNumber       int               `json:"row_number"`
	WorkTitle       string            `json:"work_title,omitempty"`
	Songwriter      string            `json:"songwriter,omitempty"`
	RecordingTitle  string            `json:"recording_title,omitempty"`
	RecordingArtist string            `json:"recording_artist,omitempty"`
	Original        map[string]string `json:"-"`
}

// DecodeContent turns raw upload bytes into a string, falling back to
// latin-1 when the bytes are not valid UTF-8.
func DecodeContent(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

// DetectDelimiter inspects the first line; pipe wins ties, then tab, then
// comma.
func DetectDelimiter(content string) rune {
	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}

	pipes := strings.Count(firstLine, "|")
	commas := strings.Count(firstLine, ",")
	tabs := strings.Count(firstLine, "\t")

	switch {
	case pipes >= commas && pipes >= tabs:
		return '|'
	case tabs >= commas:
		return '\t'
	default:
		return ','
	}
}

func normalizeColumnName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	for standard, aliases := range columnAliases {
		if lower == standard {
			return standard
		}
		for _, alias := range aliases {
			if lower == alias {
				return standard
			}
		}
	}
	return ""
}

// ParseContent parses delimited file content into records. Rows without a
// work title or recording title are dropped; malformed rows are skipped.
func ParseContent(content string) ([]ParsedRecord, error) {
	content = strings.TrimPrefix(content, "\ufeff")

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = DetectDelimiter(content)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, ErrNoRecords
	}

	// column index -> canonical name
	mapping := make(map[int]string)
	for i, col := range header {
		if standard := normalizeColumnName(col); standard != "" {
			mapping[i] = standard
		}
	}

	var records []ParsedRecord
	rowNum := 0
	for {
		row, err := reader.Read()
		if err != nil {
			break
		}
		rowNum++

		record := ParsedRecord{
			RowNumber: rowNum,
			Original:  make(map[string]string, len(row)),
		}
		for i, value := range row {
			if i < len(header) {
				record.Original[header[i]] = value
			}
			standard, ok := mapping[i]
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			switch standard {
			case "work_title":
				record.WorkTitle = value
			case "songwriter":
				record.Songwriter = value
			case "recording_title":
				record.RecordingTitle = value
			case "recording_artist":
				record.RecordingArtist = value
			}
		}

		if record.WorkTitle != "" || record.RecordingTitle != "" {
			records = append(records, record)
		}
	}

	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}

// ValidationResult summarizes a file without touching the database.
type ValidationResult struct {
	Valid           bool           `json:"valid"`
	TotalRecords    int            `json:"total_records"`
	SampleRecords   []ParsedRecord `json:"sample_records"`
	DetectedColumns []string       `json:"detected_columns"`
	Error           string         `json:"error,omitempty"`
}

// Validate parses the content and returns the record count plus the first
// five rows as a sample.
func Validate(raw []byte) ValidationResult {
	records, err := ParseContent(DecodeContent(raw))
	if err != nil {
		return ValidationResult{Valid: false, Error: err.Error()}
	}

	sample := records
	if len(sample) > 5 {
		sample = sample[:5]
	}

	columns := []string{}
	seen := map[string]bool{}
	for _, rec := range sample {
		for _, col := range []struct {
			name, value string
		}{
			{"recording_title", rec.RecordingTitle},
			{"recording_artist", rec.RecordingArtist},
			{"work_title", rec.WorkTitle},
			{"songwriter", rec.Songwriter},
		} {
			if col.value != "" && !seen[col.name] {
				seen[col.name] = true
				columns = append(columns, col.name)
			}
		}
	}

	return ValidationResult{
		Valid:           true,
		TotalRecords:    len(records),
		SampleRecords:   sample,
		DetectedColumns: columns,
	}
}
