package service

import (
	"context"
	"errors"
	"examprep_backend/internal/model"
	"examprep_backend/internal/util"
	"testing"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

type fakeTopicStore struct {
	configs  []model.PdfTopicConfig
	err      error
	replaced []model.PdfTopicConfig
}

func (f *fakeTopicStore) ListBySubject(ctx context.Context, subjectID uint) ([]model.PdfTopicConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.PdfTopicConfig
	for _, c := range f.configs {
		if c.SubjectID == subjectID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeTopicStore) FindBySubjectAndNumber(ctx context.Context, subjectID uint, topicNumber int) (*model.PdfTopicConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.configs {
		if c.SubjectID == subjectID && c.TopicNumber == topicNumber {
			cfg := c
			return &cfg, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTopicStore) ReplaceForSubject(ctx context.Context, subjectID uint, configs []model.PdfTopicConfig) error {
	if f.err != nil {
		return f.err
	}
	f.replaced = configs
	return nil
}

type prefixURLs string

func (p prefixURLs) PublicURL(key string) string { return string(p) + key }

func newTopicService(store *fakeTopicStore) *TopicService {
	return NewTopicService(store, prefixURLs("https://cdn.test/"), validator.New())
}

func TestSplitTopicName(t *testing.T) {
	tests := []struct {
		raw, name, video string
	}{
		{"Intro (https://youtu.be/abcdefghijk)", "Intro", "https://youtu.be/abcdefghijk"},
		{"Limits - youtube.com/watch?v=ABCDEFGHIJK", "Limits", "https://youtube.com/watch?v=ABCDEFGHIJK"},
		{"Vectors [https://www.youtube.com/embed/a_b-c_d-e_f]", "Vectors", "https://www.youtube.com/embed/a_b-c_d-e_f"},
		{"Sets https://www.youtube.com/watch?feature=share&v=12345678901", "Sets", "https://www.youtube.com/watch?feature=share&v=12345678901"},
		{"Plain topic", "Plain topic", ""},
		{"Short youtu.be/abc", "Short youtu.be/abc", ""},
	}
	for _, tt := range tests {
		name, video := SplitTopicName(tt.raw)
		if name != tt.name || video != tt.video {
			t.Errorf("SplitTopicName(%q) = (%q, %q), want (%q, %q)", tt.raw, name, video, tt.name, tt.video)
		}
	}
}

func TestEmbedURL(t *testing.T) {
	tests := map[string]string{
		"https://youtu.be/abcdefghijk":                     "https://www.youtube.com/embed/abcdefghijk",
		"https://www.youtube.com/watch?v=abcdefghijk&t=10": "https://www.youtube.com/embed/abcdefghijk",
		"https://vimeo.com/12345":                          "",
		"":                                                 "",
	}
	for in, want := range tests {
		if got := EmbedURL(in); got != want {
			t.Errorf("EmbedURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveTopicExtractsVideoFromName(t *testing.T) {
	store := &fakeTopicStore{configs: []model.PdfTopicConfig{{
		SubjectID: 1, TopicNumber: 1, TopicName: "Intro (https://youtu.be/abcdefghijk)",
		PageStart: 3, PageEnd: 9, PDFPath: "subjects/1/a.pdf",
	}}}

	got, err := newTopicService(store).ResolveTopic(context.Background(), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Intro" || got.VideoURL != "https://youtu.be/abcdefghijk" {
		t.Fatalf("got name=%q video=%q", got.Name, got.VideoURL)
	}
	if got.PageStart != 3 || got.PageEnd != 9 {
		t.Fatalf("got pages %d-%d", got.PageStart, got.PageEnd)
	}
	if got.PDFURL != "https://cdn.test/subjects/1/a.pdf" {
		t.Fatalf("pdf url = %q", got.PDFURL)
	}
	if got.EmbedURL != "https://www.youtube.com/embed/abcdefghijk" {
		t.Fatalf("embed url = %q", got.EmbedURL)
	}
}

func TestResolveTopicExplicitVideoWins(t *testing.T) {
	store := &fakeTopicStore{configs: []model.PdfTopicConfig{{
		SubjectID: 1, TopicNumber: 2, TopicName: "Intro (https://youtu.be/abcdefghijk)",
		PageStart: 1, PageEnd: 1, PDFPath: "subjects/1/a.pdf", VideoURL: "https://youtu.be/zzzzzzzzzzz",
	}}}

	got, err := newTopicService(store).ResolveTopic(context.Background(), 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got.VideoURL != "https://youtu.be/zzzzzzzzzzz" {
		t.Fatalf("video = %q", got.VideoURL)
	}
	if got.Name != "Intro (https://youtu.be/abcdefghijk)" {
		t.Fatalf("name should stay untouched, got %q", got.Name)
	}
}

func TestResolveTopicNotConfigured(t *testing.T) {
	_, err := newTopicService(&fakeTopicStore{}).ResolveTopic(context.Background(), 1, 4)
	if !errors.Is(err, util.ErrNotConfigured) {
		t.Fatalf("got %v, want ErrNotConfigured", err)
	}
}

func TestResolveTopicStoreFailure(t *testing.T) {
	_, err := newTopicService(&fakeTopicStore{err: errors.New("timeout")}).ResolveTopic(context.Background(), 1, 1)
	if !errors.Is(err, util.ErrStoreUnavailable) {
		t.Fatalf("got %v, want ErrStoreUnavailable", err)
	}
}

func TestReplaceTopicsRenumbersAndValidates(t *testing.T) {
	store := &fakeTopicStore{}
	svc := newTopicService(store)

	out, err := svc.ReplaceTopics(context.Background(), 7, "subjects/7/x.pdf", []TopicInput{
		{Name: " Algebra ", PageStart: 1, PageEnd: 4},
		{Name: "Geometry", PageStart: 5, PageEnd: 5, VideoURL: "https://youtu.be/abcdefghijk"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(store.replaced) != 2 || len(out) != 2 {
		t.Fatalf("replaced %d topics, returned %d", len(store.replaced), len(out))
	}
	for i, c := range store.replaced {
		if c.TopicNumber != i+1 || c.SubjectID != 7 || c.PDFPath != "subjects/7/x.pdf" {
			t.Fatalf("topic %d stored as %+v", i, c)
		}
	}
	if store.replaced[0].TopicName != "Algebra" {
		t.Fatalf("name not trimmed: %q", store.replaced[0].TopicName)
	}

	bad := [][]TopicInput{
		{{Name: "", PageStart: 1, PageEnd: 2}},
		{{Name: "x", PageStart: 0, PageEnd: 2}},
		{{Name: "x", PageStart: 5, PageEnd: 2}},
		{{Name: "x", PageStart: 1, PageEnd: 2, VideoURL: "not a url"}},
	}
	for i, topics := range bad {
		if _, err := svc.ReplaceTopics(context.Background(), 7, "subjects/7/x.pdf", topics); !errors.Is(err, util.ErrValidation) {
			t.Errorf("case %d: got %v, want ErrValidation", i, err)
		}
	}
}

func TestReplaceTopicsRequiresPDF(t *testing.T) {
	_, err := newTopicService(&fakeTopicStore{}).ReplaceTopics(context.Background(), 1, "", []TopicInput{
		{Name: "a", PageStart: 1, PageEnd: 1},
	})
	if !errors.Is(err, util.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}
