package driver

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"seen/internal/diag"
	"seen/internal/escape"
	"seen/internal/hir"
	"seen/internal/project"
	"seen/internal/regions"
	"seen/internal/source"
)

// planCacheSchemaVersion - increment when PlanPayload format changes.
const planCacheSchemaVersion uint16 = 1

// PlanCache stores computed region plans on disk, keyed by input digest and
// function ID. Thread-safe for concurrent access.
type PlanCache struct {
	mu  sync.RWMutex
	dir string
}

// PlanPayload is the serialized form of one function's plan and the
// diagnostics its analysis produced.
type PlanPayload struct {
	Schema uint16
	Fn     uint32

	Assignments []AssignmentRow
	Edges       []EdgeRow
	Conflicts   []EdgeRow
	Diags       []DiagRow
}

// AssignmentRow mirrors regions.Assignment.
type AssignmentRow struct {
	Bind     uint32
	Kind     uint8
	Escape   uint8
	Promoted bool
	Span     SpanRow
}

// EdgeRow mirrors regions.Edge.
type EdgeRow struct {
	From     uint32
	To       uint32
	FromKind uint8
	ToKind   uint8
	Site     SpanRow
}

// DiagRow mirrors diag.Diagnostic.
type DiagRow struct {
	Code     uint16
	Severity uint8
	Span     SpanRow
	Message  string
	Notes    []NoteRow
}

// NoteRow mirrors diag.Note.
type NoteRow struct {
	Span SpanRow
	Msg  string
}

// SpanRow mirrors source.Span.
type SpanRow struct {
	File  uint32
	Start uint32
	End   uint32
}

// OpenPlanCache initializes a plan cache at the standard location.
func OpenPlanCache(app string) (*PlanCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app, "plans")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &PlanCache{dir: dir}, nil
}

// OpenPlanCacheAt initializes a plan cache rooted at dir, for tests and
// project-local caches.
func OpenPlanCacheAt(dir string) (*PlanCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &PlanCache{dir: dir}, nil
}

func (c *PlanCache) pathFor(key project.Digest, fn hir.FuncID) string {
	hexKey := hex.EncodeToString(key[:])
	return filepath.Join(c.dir, fmt.Sprintf("%s-%d.mp", hexKey, fn))
}

// Store serializes a plan and its diagnostics under (key, fn), replacing
// the cache file atomically.
func (c *PlanCache) Store(key project.Digest, fn hir.FuncID, plan *regions.Plan, bag *diag.Bag) error {
	if c == nil || plan == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	payload := encodePlan(fn, plan, bag)
	p := c.pathFor(key, fn)
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(f.Name())
	}()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Atomic replace.
	return os.Rename(f.Name(), p)
}

// Load reads the plan cached under (key, fn). A missing file, a schema
// mismatch, or a corrupt payload all read as a cache miss.
func (c *PlanCache) Load(key project.Digest, fn hir.FuncID, maxDiag int) (*regions.Plan, *diag.Bag, bool) {
	if c == nil {
		return nil, nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key, fn))
	if err != nil {
		return nil, nil, false
	}
	defer f.Close()

	var payload PlanPayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, nil, false
	}
	if payload.Schema != planCacheSchemaVersion || payload.Fn != uint32(fn) {
		return nil, nil, false
	}
	return decodePlan(fn, &payload, maxDiag)
}

// Clear removes every cached plan.
func (c *PlanCache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".mp" {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func rowOfSpan(s source.Span) SpanRow {
	return SpanRow{File: uint32(s.File), Start: s.Start, End: s.End}
}

func spanOfRow(r SpanRow) source.Span {
	return source.Span{File: source.FileID(r.File), Start: r.Start, End: r.End}
}

func encodePlan(fn hir.FuncID, plan *regions.Plan, bag *diag.Bag) *PlanPayload {
	payload := &PlanPayload{Schema: planCacheSchemaVersion, Fn: uint32(fn)}
	for _, a := range plan.Assignments() {
		payload.Assignments = append(payload.Assignments, AssignmentRow{
			Bind:     uint32(a.Bind),
			Kind:     uint8(a.Kind),
			Escape:   uint8(a.Escape),
			Promoted: a.Promoted,
			Span:     rowOfSpan(a.Span),
		})
	}
	payload.Edges = encodeEdges(plan.Edges())
	payload.Conflicts = encodeEdges(plan.Conflicts())
	if bag != nil {
		for _, d := range bag.Items() {
			row := DiagRow{
				Code:     uint16(d.Code),
				Severity: uint8(d.Severity),
				Span:     rowOfSpan(d.Primary),
				Message:  d.Message,
			}
			for _, n := range d.Notes {
				row.Notes = append(row.Notes, NoteRow{Span: rowOfSpan(n.Span), Msg: n.Msg})
			}
			payload.Diags = append(payload.Diags, row)
		}
	}
	return payload
}

func encodeEdges(edges []regions.Edge) []EdgeRow {
	out := make([]EdgeRow, 0, len(edges))
	for _, e := range edges {
		out = append(out, EdgeRow{
			From:     uint32(e.From),
			To:       uint32(e.To),
			FromKind: uint8(e.FromKind),
			ToKind:   uint8(e.ToKind),
			Site:     rowOfSpan(e.Site),
		})
	}
	return out
}

func decodeEdges(rows []EdgeRow) []regions.Edge {
	var out []regions.Edge
	for _, r := range rows {
		out = append(out, regions.Edge{
			From:     hir.BindID(r.From),
			To:       hir.BindID(r.To),
			FromKind: regions.Kind(r.FromKind),
			ToKind:   regions.Kind(r.ToKind),
			Site:     spanOfRow(r.Site),
		})
	}
	return out
}

func decodePlan(fn hir.FuncID, payload *PlanPayload, maxDiag int) (*regions.Plan, *diag.Bag, bool) {
	var assignments []regions.Assignment
	for _, r := range payload.Assignments {
		if r.Kind > uint8(regions.Shared) || r.Escape > uint8(escape.SharedEscape) {
			return nil, nil, false
		}
		assignments = append(assignments, regions.Assignment{
			Bind:     hir.BindID(r.Bind),
			Kind:     regions.Kind(r.Kind),
			Escape:   escape.Kind(r.Escape),
			Promoted: r.Promoted,
			Span:     spanOfRow(r.Span),
		})
	}
	plan := regions.RestorePlan(fn, assignments, decodeEdges(payload.Edges), decodeEdges(payload.Conflicts))

	bag := diag.NewBag(maxDiag)
	for _, r := range payload.Diags {
		if r.Severity > uint8(diag.SevError) {
			return nil, nil, false
		}
		d := diag.Diagnostic{
			Code:     diag.Code(r.Code),
			Severity: diag.Severity(r.Severity),
			Primary:  spanOfRow(r.Span),
			Message:  r.Message,
		}
		for _, n := range r.Notes {
			d.Notes = append(d.Notes, diag.Note{Span: spanOfRow(n.Span), Msg: n.Msg})
		}
		bag.Add(d)
	}
	return plan, bag, true
}
