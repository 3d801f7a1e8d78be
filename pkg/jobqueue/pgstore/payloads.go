package pgstore

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
)

// payloadTable maps one payload struct onto its table.
type payloadTable struct {
	table   string
	columns []string
	fields  [][]int

	insertSQL string
	selectSQL string
}

type tableKey struct {
	typ   reflect.Type
	table string
}

var tables sync.Map // tableKey -> *payloadTable

func tableFor(def jobqueue.Definition) (*payloadTable, error) {
	typ := reflect.TypeOf(def.NewPayload())
	key := tableKey{typ: typ, table: def.Table}
	if t, ok := tables.Load(key); ok {
		return t.(*payloadTable), nil
	}

	t, err := newPayloadTable(def.Table, typ)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPayloadMapping, def.WorkType, err)
	}
	actual, _ := tables.LoadOrStore(key, t)
	return actual.(*payloadTable), nil
}

func newPayloadTable(table string, typ reflect.Type) (*payloadTable, error) {
	if typ.Kind() != reflect.Pointer || typ.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a pointer to struct", typ)
	}

	t := &payloadTable{table: table}
	if err := t.collect(typ.Elem(), nil); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(t.columns))
	for _, c := range t.columns {
		if c == "envelope_id" {
			return nil, fmt.Errorf("column envelope_id is reserved")
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}

	name := pgx.Identifier{table}.Sanitize()
	cols := make([]string, 0, len(t.columns)+1)
	params := make([]string, 0, len(t.columns)+1)
	cols = append(cols, "envelope_id")
	params = append(params, "$1")
	for i, c := range t.columns {
		cols = append(cols, pgx.Identifier{c}.Sanitize())
		params = append(params, fmt.Sprintf("$%d", i+2))
	}
	list := strings.Join(cols, ", ")

	t.insertSQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", name, list, strings.Join(params, ", "))
	t.selectSQL = fmt.Sprintf("SELECT %s FROM %s WHERE envelope_id = ANY($1)", list, name)
	return t, nil
}

// collect walks exported fields with a db tag. Untagged embedded structs are
// flattened.
func (t *payloadTable) collect(typ reflect.Type, prefix []int) error {
	for i := range typ.NumField() {
		f := typ.Field(i)
		index := append(append([]int(nil), prefix...), i)
		tag, hasTag := f.Tag.Lookup("db")

		if f.Anonymous && !hasTag && f.Type.Kind() == reflect.Struct {
			if err := t.collect(f.Type, index); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() || !hasTag {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" || name == "" {
			continue
		}
		t.columns = append(t.columns, name)
		t.fields = append(t.fields, index)
	}
	return nil
}

func (t *payloadTable) values(envelopeID int64, p jobqueue.Payload) []any {
	v := reflect.ValueOf(p).Elem()
	args := make([]any, 0, len(t.fields)+1)
	args = append(args, envelopeID)
	for _, idx := range t.fields {
		args = append(args, v.FieldByIndex(idx).Interface())
	}
	return args
}

func (t *payloadTable) targets(envelopeID *int64, p jobqueue.Payload) []any {
	v := reflect.ValueOf(p).Elem()
	dest := make([]any, 0, len(t.fields)+1)
	dest = append(dest, envelopeID)
	for _, idx := range t.fields {
		dest = append(dest, v.FieldByIndex(idx).Addr().Interface())
	}
	return dest
}

func (s *Store) insertPayload(ctx context.Context, q DB, def jobqueue.Definition, envelopeID int64, p jobqueue.Payload) error {
	t, err := tableFor(def)
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, t.insertSQL, t.values(envelopeID, p)...); err != nil {
		return fmt.Errorf("insert %s payload: %w", def.WorkType, err)
	}
	return nil
}

// attachPayloads loads the payload of every job, one query per work type.
func (s *Store) attachPayloads(ctx context.Context, q DB, jobs []*jobqueue.Job) error {
	byType := make(map[jobqueue.WorkType][]*jobqueue.Job)
	for _, j := range jobs {
		byType[j.WorkType] = append(byType[j.WorkType], j)
	}

	for wt, group := range byType {
		def, err := s.registry.MustLookup(wt)
		if err != nil {
			return err
		}
		t, err := tableFor(def)
		if err != nil {
			return err
		}

		ids := make([]int64, len(group))
		for i, j := range group {
			ids[i] = j.ID
		}

		rows, err := q.Query(ctx, t.selectSQL, ids)
		if err != nil {
			return fmt.Errorf("select %s payloads: %w", wt, err)
		}
		found := make(map[int64]jobqueue.Payload, len(group))
		for rows.Next() {
			var id int64
			p := def.NewPayload()
			if err := rows.Scan(t.targets(&id, p)...); err != nil {
				rows.Close()
				return fmt.Errorf("%w: %s: %v", jobqueue.ErrPayloadDecode, wt, err)
			}
			found[id] = p
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("select %s payloads: %w", wt, err)
		}

		for _, j := range group {
			p, ok := found[j.ID]
			if !ok {
				return fmt.Errorf("%w %d", ErrPayloadMissing, j.ID)
			}
			j.Payload = p
		}
	}
	return nil
}
