package service

import (
	"bytes"
	"context"
	"errors"
	"examprep_backend/internal/config"
	"examprep_backend/internal/repository"
	"examprep_backend/internal/util"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n%%EOF\n")

func newTestSubjectService(t *testing.T) *SubjectService {
	t.Helper()
	db := newTestDB(t)
	validate := validator.New()
	storage := NewStorageService(&config.Config{Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()}})
	topics := NewTopicService(repository.NewTopicConfigRepository(db), storage, validate)
	return NewSubjectService(
		repository.NewSubjectRepository(db),
		repository.NewQuestionRepository(db),
		topics,
		storage,
		validate,
		1,
	)
}

func TestSubjectCreateUniqueName(t *testing.T) {
	svc := newTestSubjectService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, SubjectInput{Name: " Algebra "}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, SubjectInput{Name: "Algebra"}); !errors.Is(err, util.ErrSubjectNameTaken) {
		t.Fatalf("duplicate name: got %v", err)
	}
	if _, err := svc.Create(ctx, SubjectInput{Name: "  "}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("blank name: got %v", err)
	}

	geo, err := svc.Create(ctx, SubjectInput{Name: "Geometry"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Update(ctx, geo.ID, SubjectInput{Name: "Algebra"}); !errors.Is(err, util.ErrSubjectNameTaken) {
		t.Fatalf("rename to taken name: got %v", err)
	}
	if _, err := svc.Update(ctx, geo.ID, SubjectInput{Name: "Geometry", Description: "shapes"}); err != nil {
		t.Fatalf("update keeping own name: %v", err)
	}

	rows, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].Name != "Algebra" || rows[1].Description != "shapes" {
		t.Fatalf("rows %+v", rows)
	}
}

func TestImportQuestions(t *testing.T) {
	svc := newTestSubjectService(t)
	ctx := context.Background()
	subject, _ := svc.Create(ctx, SubjectInput{Name: "Biology"})

	n, err := svc.ImportQuestions(ctx, subject.ID, []QuestionInput{
		{Prompt: "p1", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d", CorrectOption: "b"},
		{Prompt: "p2", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d", CorrectOption: "D"},
	})
	if err != nil || n != 2 {
		t.Fatalf("imported %d, err %v", n, err)
	}

	qs, _ := svc.Questions.FindBySubjectIDs(ctx, []uint{subject.ID})
	if len(qs) != 2 || qs[0].CorrectOption != "B" {
		t.Fatalf("questions %+v", qs)
	}

	_, err = svc.ImportQuestions(ctx, subject.ID, []QuestionInput{
		{Prompt: "p3", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d", CorrectOption: "E"},
	})
	if !errors.Is(err, util.ErrValidation) {
		t.Fatalf("bad option: got %v", err)
	}
	if _, err := svc.ImportQuestions(ctx, 999, []QuestionInput{{}}); !errors.Is(err, util.ErrSubjectNotFound) {
		t.Fatalf("unknown subject: got %v", err)
	}
}

func TestSaveTopicsReplacesPDF(t *testing.T) {
	svc := newTestSubjectService(t)
	ctx := context.Background()
	subject, _ := svc.Create(ctx, SubjectInput{Name: "History"})

	topics := []TopicInput{{Name: "Rome", PageStart: 1, PageEnd: 3}, {Name: "Greece", PageStart: 4, PageEnd: 6}}

	if _, err := svc.SaveTopics(ctx, subject.ID, nil, 0, topics); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("topics without PDF: got %v", err)
	}

	first, err := svc.SaveTopics(ctx, subject.ID, bytes.NewReader(samplePDF), int64(len(samplePDF)), topics)
	if err != nil {
		t.Fatal(err)
	}
	firstPath := first[0].PDFPath
	if !strings.HasPrefix(firstPath, subjectPrefix(subject.ID)) || !strings.HasSuffix(firstPath, ".pdf") {
		t.Fatalf("pdf path %q", firstPath)
	}

	// 不上传新文件时沿用原 PDF
	kept, err := svc.SaveTopics(ctx, subject.ID, nil, 0, topics[:1])
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 1 || kept[0].PDFPath != firstPath {
		t.Fatalf("kept %+v", kept)
	}

	second, err := svc.SaveTopics(ctx, subject.ID, bytes.NewReader(samplePDF), int64(len(samplePDF)), topics)
	if err != nil {
		t.Fatal(err)
	}
	files, err := svc.ListFiles(ctx, subject.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Key != second[0].PDFPath || !files[0].InUse {
		t.Fatalf("files after replacement %+v", files)
	}

	content, err := svc.Topics.ResolveTopic(ctx, subject.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if content.Name != "Greece" || content.PageStart != 4 {
		t.Fatalf("topic 2 = %+v", content)
	}
}

func TestUploadPDFRejectsOtherTypes(t *testing.T) {
	svc := newTestSubjectService(t)
	ctx := context.Background()
	subject, _ := svc.Create(ctx, SubjectInput{Name: "Art"})

	_, err := svc.UploadPDF(ctx, subject.ID, strings.NewReader("just some text"), 14)
	if !errors.Is(err, util.ErrInvalidFileType) {
		t.Fatalf("text upload: got %v", err)
	}
	_, err = svc.UploadPDF(ctx, subject.ID, bytes.NewReader(samplePDF), 2<<20)
	if !errors.Is(err, util.ErrFileTooLarge) {
		t.Fatalf("oversize upload: got %v", err)
	}
}

func TestDeleteSubjectCascades(t *testing.T) {
	svc := newTestSubjectService(t)
	ctx := context.Background()
	subject, _ := svc.Create(ctx, SubjectInput{Name: "Physics"})

	_, _ = svc.ImportQuestions(ctx, subject.ID, []QuestionInput{
		{Prompt: "p", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d", CorrectOption: "A"},
	})
	if _, err := svc.SaveTopics(ctx, subject.ID, bytes.NewReader(samplePDF), int64(len(samplePDF)),
		[]TopicInput{{Name: "Motion", PageStart: 1, PageEnd: 2}}); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, subject.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, subject.ID); !errors.Is(err, util.ErrSubjectNotFound) {
		t.Fatalf("subject still present: %v", err)
	}
	qs, _ := svc.Questions.FindBySubjectIDs(ctx, []uint{subject.ID})
	if len(qs) != 0 {
		t.Fatalf("%d questions left", len(qs))
	}
	keys, _ := svc.Storage.List(ctx, subjectPrefix(subject.ID))
	if len(keys) != 0 {
		t.Fatalf("files left: %v", keys)
	}

	// 名称可以重新使用
	if _, err := svc.Create(ctx, SubjectInput{Name: "Physics"}); err != nil {
		t.Fatalf("recreate: %v", err)
	}
}
