package propagate

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/emrgen/propagate/internal/link"
	"github.com/emrgen/propagate/internal/model"
	"github.com/emrgen/propagate/internal/store"
	"github.com/emrgen/propagate/internal/tester"
	"github.com/stretchr/testify/require"
)

// record is shared by a recordingStore and the transaction stores it hands out.
type record struct {
	mu      sync.Mutex
	writes  int
	upserts []string
	deletes []string
	// txReads lists the documents read inside transactions, in order
	txReads []string
	// fail makes writes to these document paths return an error
	fail map[string]error
}

func (r *record) write() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
}

func (r *record) TxReads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.txReads...)
}

func (r *record) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// recordingStore counts the writes issued through it.
type recordingStore struct {
	store.Store
	rec  *record
	inTx bool
}

func (s *recordingStore) GetDocument(ctx context.Context, path string) (*model.Document, error) {
	if s.inTx {
		s.rec.mu.Lock()
		s.rec.txReads = append(s.rec.txReads, path)
		s.rec.mu.Unlock()
	}
	return s.Store.GetDocument(ctx, path)
}

func (s *recordingStore) SetDocument(ctx context.Context, doc *model.Document) error {
	s.rec.write()
	if err := s.rec.fail[doc.Path]; err != nil {
		return err
	}
	return s.Store.SetDocument(ctx, doc)
}

func (s *recordingStore) MergeFields(ctx context.Context, path string, fields map[string]any) error {
	s.rec.write()
	if err := s.rec.fail[path]; err != nil {
		return err
	}
	return s.Store.MergeFields(ctx, path, fields)
}

func (s *recordingStore) RemoveArrayElements(ctx context.Context, path string, field string, match func(any) bool) (int, error) {
	s.rec.write()
	if err := s.rec.fail[path]; err != nil {
		return 0, err
	}
	return s.Store.RemoveArrayElements(ctx, path, field, match)
}

func (s *recordingStore) DeleteDocument(ctx context.Context, path string) error {
	s.rec.write()
	return s.Store.DeleteDocument(ctx, path)
}

func (s *recordingStore) UpsertBackLink(ctx context.Context, l *model.BackLink) error {
	s.rec.mu.Lock()
	s.rec.writes++
	s.rec.upserts = append(s.rec.upserts, fmt.Sprintf("%s <- %s.%s", l.TargetPath, l.ReferrerPath, l.FieldName))
	s.rec.mu.Unlock()
	return s.Store.UpsertBackLink(ctx, l)
}

func (s *recordingStore) DeleteBackLink(ctx context.Context, targetPath, referrerPath, fieldName string) error {
	s.rec.mu.Lock()
	s.rec.writes++
	s.rec.deletes = append(s.rec.deletes, fmt.Sprintf("%s <- %s.%s", targetPath, referrerPath, fieldName))
	s.rec.mu.Unlock()
	return s.Store.DeleteBackLink(ctx, targetPath, referrerPath, fieldName)
}

func (s *recordingStore) DeleteBackLinksTo(ctx context.Context, targetPath string) error {
	s.rec.write()
	return s.Store.DeleteBackLinksTo(ctx, targetPath)
}

func (s *recordingStore) Transaction(ctx context.Context, f func(tx store.Store) error) error {
	return s.Store.Transaction(ctx, func(tx store.Store) error {
		return f(&recordingStore{Store: tx, rec: s.rec, inTx: true})
	})
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	db     store.Store
	rec    *record
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	db := store.NewGormStore(tester.TestDB(t))
	rec := &record{fail: make(map[string]error)}

	return &fixture{
		t:      t,
		ctx:    context.Background(),
		db:     db,
		rec:    rec,
		engine: NewEngine(&recordingStore{Store: db, rec: rec}, WithConcurrency(4)),
	}
}

// put writes a document without going through the recorder.
func (f *fixture) put(path string, fields map[string]any) *model.Document {
	doc, err := model.NewDocument(path, fields)
	require.NoError(f.t, err)
	require.NoError(f.t, f.db.SetDocument(f.ctx, doc))

	got, err := f.db.GetDocument(f.ctx, path)
	require.NoError(f.t, err)
	return got
}

// backLink writes a back link without going through the recorder.
func (f *fixture) backLink(target, referrer, field string, tracked ...string) {
	l, err := model.NewBackLink(target, referrer, field, tracked)
	require.NoError(f.t, err)
	require.NoError(f.t, f.db.UpsertBackLink(f.ctx, l))
}

func (f *fixture) entries(path, field string) []link.Entry {
	doc, err := f.db.GetDocument(f.ctx, path)
	require.NoError(f.t, err)
	entries, err := link.DecodeDocumentField(doc, field)
	require.NoError(f.t, err)
	return entries
}

func (f *fixture) backLinksTo(target string) []*model.BackLink {
	links, err := f.db.ListBackLinksTo(f.ctx, target)
	require.NoError(f.t, err)
	return links
}

func linkList(entries ...map[string]any) []any {
	list := make([]any, 0, len(entries))
	for _, entry := range entries {
		list = append(list, entry)
	}
	return list
}
