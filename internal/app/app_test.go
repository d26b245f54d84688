package app

import (
	"bytes"
	"encoding/json"
	"examprep_backend/internal/config"
	"examprep_backend/internal/model"
	"examprep_backend/pkg/database"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t   *testing.T
	app *App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   gormlogger.Discard,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := database.AutoMigrate(db); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: "test"},
		JWT:     config.JWTConfig{Secret: "integration-secret", ExpireTime: time.Hour},
		Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir(), MaxPDFSizeMB: 5},
		Exam: config.ExamConfig{
			DefaultQuestionCount: 10,
			MaxQuestionCount:     50,
			SessionTTL:           time.Hour,
			AbandonAfter:         48 * time.Hour,
			CleanupSchedule:      "@hourly",
		},
	}
	return &testServer{t: t, app: NewAppWithDB(cfg, db, nil)}
}

func (s *testServer) do(req *http.Request, token string) (int, envelope) {
	s.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "application/pdf" {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("%s %s: bad body %q", req.Method, req.URL.Path, w.Body.String())
		}
	}
	return w.Code, env
}

func (s *testServer) json(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, token)
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	code, env := s.json(http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": password})
	if code != http.StatusOK {
		s.t.Fatalf("login %s: %d %s", email, code, env.Message)
	}
	var res struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(env.Data, &res)
	return res.Token
}

func (s *testServer) register(email string) {
	s.t.Helper()
	code, env := s.json(http.MethodPost, "/api/register", "", map[string]string{"email": email, "password": "password123"})
	if code != http.StatusCreated {
		s.t.Fatalf("register %s: %d %s", email, code, env.Message)
	}
}

func decode(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode %s: %v", env.Data, err)
	}
}

func TestExamFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)

	s.register("admin@example.com")
	s.app.DB.Model(&model.User{}).Where("email = ?", "admin@example.com").Update("role", model.Admin)
	admin := s.login("admin@example.com", "password123")

	s.register("student@example.com")
	student := s.login("student@example.com", "password123")

	if code, _ := s.json(http.MethodGet, "/api/subjects", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous subjects list: %d", code)
	}
	if code, _ := s.json(http.MethodPost, "/api/admin/subjects", student, map[string]string{"name": "X"}); code != http.StatusForbidden {
		t.Fatalf("student creating subject: %d", code)
	}

	code, env := s.json(http.MethodPost, "/api/admin/subjects", admin, map[string]string{"name": "Chemistry"})
	if code != http.StatusCreated {
		t.Fatalf("create subject: %d %s", code, env.Message)
	}
	var subject model.Subject
	decode(t, env, &subject)

	questions := make([]map[string]string, 0, 3)
	for i := 0; i < 3; i++ {
		questions = append(questions, map[string]string{
			"prompt": fmt.Sprintf("Q%d", i), "optionA": "a", "optionB": "b", "optionC": "c", "optionD": "d", "correctOption": "A",
		})
	}
	code, env = s.json(http.MethodPost, fmt.Sprintf("/api/admin/subjects/%d/questions", subject.ID), admin,
		map[string]interface{}{"questions": questions})
	if code != http.StatusCreated {
		t.Fatalf("import: %d %s", code, env.Message)
	}

	code, env = s.json(http.MethodPost, "/api/exams", student, map[string]interface{}{"subjectIds": []uint{subject.ID}, "count": 2})
	if code != http.StatusCreated {
		t.Fatalf("start exam: %d %s", code, env.Message)
	}
	var view struct {
		ExamID     uint `json:"examId"`
		Index      int  `json:"index"`
		Total      int  `json:"total"`
		CanAdvance bool `json:"canAdvance"`
	}
	decode(t, env, &view)
	if view.Total != 2 || view.Index != 0 || !view.CanAdvance {
		t.Fatalf("first view %+v", view)
	}
	base := fmt.Sprintf("/api/exams/%d", view.ExamID)

	if code, _ := s.json(http.MethodPost, base+"/prev", student, nil); code != http.StatusConflict {
		t.Fatalf("prev at first question: %d", code)
	}
	if code, _ := s.json(http.MethodPut, base+"/answer", student, map[string]string{"option": "E"}); code != http.StatusBadRequest {
		t.Fatalf("invalid option: %d", code)
	}
	if code, env := s.json(http.MethodPut, base+"/answer", student, map[string]string{"option": "a"}); code != http.StatusOK {
		t.Fatalf("answer: %d %s", code, env.Message)
	}
	if code, _ := s.json(http.MethodPost, base+"/next", student, nil); code != http.StatusOK {
		t.Fatalf("next: %d", code)
	}
	if code, _ := s.json(http.MethodPut, base+"/answer", student, map[string]string{"option": "B"}); code != http.StatusOK {
		t.Fatalf("second answer: %d", code)
	}

	// 其他用户不能操作该考试
	s.register("other@example.com")
	other := s.login("other@example.com", "password123")
	if code, _ := s.json(http.MethodGet, base+"/current", other, nil); code != http.StatusNotFound {
		t.Fatalf("foreign session access: %d", code)
	}

	code, env = s.json(http.MethodPost, base+"/finish", student, nil)
	if code != http.StatusOK {
		t.Fatalf("finish: %d %s", code, env.Message)
	}
	var outcome struct {
		Saved  bool `json:"saved"`
		Result struct {
			Total      int `json:"total"`
			Correct    int `json:"correct"`
			Percentage int `json:"percentage"`
		} `json:"result"`
	}
	decode(t, env, &outcome)
	if !outcome.Saved || outcome.Result.Total != 2 || outcome.Result.Correct != 1 || outcome.Result.Percentage != 50 {
		t.Fatalf("outcome %+v", outcome)
	}

	if code, _ := s.json(http.MethodGet, base+"/result", student, nil); code != http.StatusOK {
		t.Fatalf("result: %d", code)
	}
	if code, _ := s.json(http.MethodPost, base+"/next", student, nil); code == http.StatusOK {
		t.Fatal("navigation allowed after finish")
	}

	req := httptest.NewRequest(http.MethodGet, base+"/result.pdf", nil)
	req.Header.Set("Authorization", "Bearer "+student)
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("result pdf: %d", w.Code)
	}

	code, env = s.json(http.MethodGet, "/api/exams", student, nil)
	if code != http.StatusOK {
		t.Fatalf("history: %d", code)
	}
	var history []struct {
		ID              uint `json:"id"`
		ScorePercentage *int `json:"scorePercentage"`
	}
	decode(t, env, &history)
	if len(history) != 1 || history[0].ScorePercentage == nil || *history[0].ScorePercentage != 50 {
		t.Fatalf("history %s", env.Data)
	}
	if code, _ := s.json(http.MethodGet, base, other, nil); code != http.StatusNotFound {
		t.Fatalf("foreign detail: %d", code)
	}
}

func TestTopicsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.register("admin@example.com")
	s.app.DB.Model(&model.User{}).Where("email = ?", "admin@example.com").Update("role", model.Admin)
	admin := s.login("admin@example.com", "password123")

	_, env := s.json(http.MethodPost, "/api/admin/subjects", admin, map[string]string{"name": "Geography"})
	var subject model.Subject
	decode(t, env, &subject)
	topicsPath := fmt.Sprintf("/api/admin/subjects/%d/topics", subject.ID)

	topics := []map[string]interface{}{{"name": "Rivers https://youtu.be/dQw4w9WgXcQ", "pageStart": 1, "pageEnd": 4}}
	if code, _ := s.json(http.MethodPut, topicsPath, admin, map[string]interface{}{"topics": topics}); code != http.StatusBadRequest {
		t.Fatalf("topics without a PDF: %d", code)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	raw, _ := json.Marshal(topics)
	_ = mw.WriteField("topics", string(raw))
	fw, _ := mw.CreateFormFile("pdf", "geo.pdf")
	_, _ = fw.Write([]byte("%PDF-1.4\n%%EOF\n"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPut, topicsPath, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	code, env := s.do(req, admin)
	if code != http.StatusOK {
		t.Fatalf("save topics: %d %s", code, env.Message)
	}

	code, env = s.json(http.MethodGet, fmt.Sprintf("/api/subjects/%d/topics/1", subject.ID), admin, nil)
	if code != http.StatusOK {
		t.Fatalf("topic 1: %d %s", code, env.Message)
	}
	var content struct {
		Name     string `json:"name"`
		PDFURL   string `json:"pdfUrl"`
		EmbedURL string `json:"embedUrl"`
	}
	decode(t, env, &content)
	if content.Name != "Rivers" || content.PDFURL == "" || content.EmbedURL == "" {
		t.Fatalf("topic content %+v", content)
	}

	if code, _ := s.json(http.MethodGet, fmt.Sprintf("/api/subjects/%d/topics/2", subject.ID), admin, nil); code != http.StatusNotFound {
		t.Fatalf("unconfigured topic: %d", code)
	}
}
