package pdb

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Default markers for alpha-carbon ATOM records.
const (
	DefaultRecordMarker   = "ATOM"
	DefaultAtomNameMarker = "CA"
)

// Token positions (0-indexed) within a space-split ATOM line.
const (
	recordField   = 0
	atomNameField = 2
	xField        = 6
	yField        = 7
	zField        = 8

	// MinCoordinateTokens is the smallest token count a qualifying line
	// may have.
	MinCoordinateTokens = zField + 1
)

// maxLineSize bounds a single record line. PDB lines are 80 columns.
const maxLineSize = 1024 * 1024

// Coordinate holds the raw X, Y and Z tokens of one atom record. The values
// are never parsed so "1.000" stays "1.000".
type Coordinate struct {
	X string `json:"x"`
	Y string `json:"y"`
	Z string `json:"z"`
}

// String renders the coordinate as "x,y,z".
func (c Coordinate) String() string {
	return c.X + "," + c.Y + "," + c.Z
}

// Coordinates is an ordered list of coordinates in file line order.
type Coordinates []Coordinate

// Args returns one "x,y,z" string per coordinate.
func (cs Coordinates) Args() []string {
	args := make([]string, len(cs))
	for i, c := range cs {
		args[i] = c.String()
	}
	return args
}

// FormatError reports a record line that matched the markers but cannot
// supply the expected columns.
type FormatError struct {
	File    string
	Line    int
	Tokens  int
	Message string
}

func (e *FormatError) Error() string {
	loc := fmt.Sprintf("line %d", e.Line)
	if e.File != "" {
		loc = fmt.Sprintf("%s:%d", e.File, e.Line)
	}
	return fmt.Sprintf("%s: %s (found %d tokens)", loc, e.Message, e.Tokens)
}

// Extractor scans PDB text for records matching a record marker and an
// atom-name marker.
type Extractor struct {
	// RecordMarker must equal the first token. Defaults to "ATOM".
	RecordMarker string
	// AtomNameMarker must equal the third token. Defaults to "CA".
	AtomNameMarker string
	// Logger is optional.
	Logger *slog.Logger
}

// NewExtractor returns an Extractor for alpha-carbon ATOM records.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{
		RecordMarker:   DefaultRecordMarker,
		AtomNameMarker: DefaultAtomNameMarker,
		Logger:         logger,
	}
}

// ExtractFile opens path and extracts its coordinates.
func (e *Extractor) ExtractFile(path string) (Coordinates, error) {
	f, err := os.Open(path) //nolint:gosec // path is the artifact we wrote
	if err != nil {
		return nil, fmt.Errorf("failed to open structure file: %w", err)
	}
	defer func() { _ = f.Close() }()

	coords, err := e.extract(f, path)
	if err != nil {
		return nil, err
	}
	e.logger().Debug("extracted coordinates", slog.String("file", path), slog.Int("count", len(coords)))
	return coords, nil
}

// Extract reads r line by line and returns the coordinates of every
// qualifying line.
func (e *Extractor) Extract(r io.Reader) (Coordinates, error) {
	return e.extract(r, "")
}

func (e *Extractor) extract(r io.Reader, name string) (Coordinates, error) {
	record := e.RecordMarker
	if record == "" {
		record = DefaultRecordMarker
	}
	atom := e.AtomNameMarker
	if atom == "" {
		atom = DefaultAtomNameMarker
	}

	coords := Coordinates{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		tokens := Tokenize(strings.TrimSuffix(scanner.Text(), "\r"))
		if len(tokens) == 0 || tokens[recordField] != record {
			continue
		}
		if len(tokens) <= atomNameField {
			return nil, &FormatError{
				File:    name,
				Line:    lineNo,
				Tokens:  len(tokens),
				Message: fmt.Sprintf("%s record has no atom name column", record),
			}
		}
		if tokens[atomNameField] != atom {
			continue
		}
		if len(tokens) < MinCoordinateTokens {
			return nil, &FormatError{
				File:    name,
				Line:    lineNo,
				Tokens:  len(tokens),
				Message: fmt.Sprintf("%s %s record needs at least %d tokens", record, atom, MinCoordinateTokens),
			}
		}
		coords = append(coords, Coordinate{
			X: tokens[xField],
			Y: tokens[yField],
			Z: tokens[zField],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read structure file: %w", err)
	}
	return coords, nil
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Tokenize splits line on single spaces and drops empty tokens, so runs of
// spaces collapse. Tabs are not separators.
func Tokenize(line string) []string {
	parts := strings.Split(line, " ")
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}
