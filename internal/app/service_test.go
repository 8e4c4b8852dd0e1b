package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"scopilot/api/internal/authpw"
	"scopilot/api/internal/config"
	"scopilot/api/internal/email"
	"scopilot/api/internal/history"
	"scopilot/api/internal/scoping"
	"scopilot/api/internal/search"
	"scopilot/api/internal/session"
	"scopilot/api/internal/store"

	"golang.org/x/crypto/bcrypt"
)

type fakeStore struct {
	mu       sync.Mutex
	users    map[string]store.User
	projects map[string]scoping.Project
	revoked  map[string]bool
	pingErr  error

	updateProjectDataFn func(ctx context.Context, projectID string, currentPhase scoping.Phase, data scoping.ProjectData) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]store.User),
		projects: make(map[string]scoping.Project),
		revoked:  make(map[string]bool),
	}
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[userID]; ok {
		return user, nil
	}
	return store.User{}, errors.New("user not found")
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, emailAddr string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == emailAddr {
			return user, nil
		}
	}
	return store.User{}, errors.New("user not found")
}

func (f *fakeStore) CreateUser(ctx context.Context, user store.User) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	user.PasswordHash = passwordHash
	f.users[userID] = user
	return nil
}

func (f *fakeStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = true
	return nil
}

func (f *fakeStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[jti], nil
}

func (f *fakeStore) ListProjects(ctx context.Context, ownerID string, includeAll bool) ([]store.ProjectSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var summaries []store.ProjectSummary
	for _, project := range f.projects {
		if !includeAll && project.OwnerID != ownerID {
			continue
		}
		summaries = append(summaries, store.ProjectSummary{
			ID:           project.ID,
			Name:         project.Name,
			Description:  project.Description,
			OwnerID:      project.OwnerID,
			CurrentPhase: project.CurrentPhase,
		})
	}
	return summaries, nil
}

func (f *fakeStore) GetProject(ctx context.Context, projectID string) (scoping.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if project, ok := f.projects[projectID]; ok {
		return project, nil
	}
	return scoping.Project{}, errNoRows
}

func (f *fakeStore) InsertProject(ctx context.Context, project scoping.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects[project.ID] = project
	return nil
}

func (f *fakeStore) UpdateProjectData(ctx context.Context, projectID string, currentPhase scoping.Phase, data scoping.ProjectData) error {
	if f.updateProjectDataFn != nil {
		return f.updateProjectDataFn(ctx, projectID, currentPhase, data)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	project, ok := f.projects[projectID]
	if !ok {
		return errNoRows
	}
	project.CurrentPhase = currentPhase
	project.Data = data
	f.projects[projectID] = project
	return nil
}

func (f *fakeStore) UpdateProjectDetails(ctx context.Context, projectID, name, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	project, ok := f.projects[projectID]
	if !ok {
		return errNoRows
	}
	project.Name = name
	project.Description = description
	f.projects[projectID] = project
	return nil
}

func (f *fakeStore) DeleteProject(ctx context.Context, projectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[projectID]; !ok {
		return errNoRows
	}
	delete(f.projects, projectID)
	return nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	return f.pingErr
}

type fakeSessions struct {
	mu      sync.Mutex
	entries map[string]store.User
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{entries: make(map[string]store.User)}
}

func (f *fakeSessions) SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[tokenHash] = user
	return nil
}

func (f *fakeSessions) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.entries[tokenHash]; ok {
		return user, nil
	}
	return store.User{}, errSessionMissing
}

func (f *fakeSessions) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, tokenHash)
	return nil
}

func (f *fakeSessions) Ping(ctx context.Context) error {
	return nil
}

type fakeSearch struct {
	mu      sync.Mutex
	indexed []search.ProjectRecord
	deleted []string
}

func (f *fakeSearch) Search(q search.Query) search.Response {
	return search.Response{Results: []search.Result{}, Query: q.Text}
}

func (f *fakeSearch) IndexProject(record search.ProjectRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, record)
}

func (f *fakeSearch) DeleteProject(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
}

type fakeHistory struct {
	mu       sync.Mutex
	messages []string
	removed  []string
}

func (f *fakeHistory) Snapshot(project scoping.Project, author, message string) (history.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return history.Entry{Message: message, Author: author}, nil
}

func (f *fakeHistory) History(projectID string, limit int) ([]history.Entry, error) {
	return []history.Entry{}, nil
}

func (f *fakeHistory) GetSnapshot(projectID, hash string) (scoping.Project, error) {
	return scoping.Project{}, errors.New("not found")
}

func (f *fakeHistory) Remove(projectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, projectID)
	return nil
}

type fakeMailer struct {
	mu         sync.Mutex
	configured bool
	approvals  []string
	validated  [][]string
}

func (f *fakeMailer) IsConfigured() bool { return f.configured }

func (f *fakeMailer) SendApprovalRequest(to string, data email.ApprovalRequestData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approvals = append(f.approvals, to)
	return nil
}

func (f *fakeMailer) SendPhaseValidated(to []string, data email.PhaseValidatedData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validated = append(f.validated, to)
	return nil
}

var (
	errNoRows         = sql.ErrNoRows
	errSessionMissing = session.ErrSessionNotFound
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:  "test-secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
}

type testEnv struct {
	service  *Service
	store    *fakeStore
	sessions *fakeSessions
	search   *fakeSearch
	history  *fakeHistory
	mail     *fakeMailer
}

func newTestEnv() *testEnv {
	st := newFakeStore()
	sessions := newFakeSessions()
	searchFake := &fakeSearch{}
	historyFake := &fakeHistory{}
	mail := &fakeMailer{}
	svc := &Service{
		cfg:      testConfig(),
		store:    st,
		sessions: sessions,
		history:  historyFake,
		search:   searchFake,
		mail:     mail,
		authpw:   authpw.NewService(st),
		watch:    NewWatchHub(),
	}
	return &testEnv{service: svc, store: st, sessions: sessions, search: searchFake, history: historyFake, mail: mail}
}

func (e *testEnv) seedUser(t *testing.T, id, name, role string) store.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := store.User{
		ID:           id,
		DisplayName:  name,
		Email:        id + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
	}
	e.store.users[id] = user
	return user
}

func (e *testEnv) sessionFor(user store.User) Session {
	return Session{UserID: user.ID, UserName: user.DisplayName, Role: user.Role}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	user := env.seedUser(t, "u1", "Alice", "user")

	sess, err := env.service.CreateSession(ctx, user.ID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.Token == "" || sess.RefreshToken == "" {
		t.Fatal("expected token pair")
	}

	parsed, err := env.service.SessionFromToken(ctx, sess.Token)
	if err != nil {
		t.Fatalf("SessionFromToken: %v", err)
	}
	if parsed.UserID != "u1" || parsed.UserName != "Alice" {
		t.Fatalf("unexpected session: %+v", parsed)
	}

	rotated, err := env.service.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == sess.RefreshToken {
		t.Fatal("refresh must rotate the token")
	}
	if _, err := env.service.Refresh(ctx, sess.RefreshToken); err == nil {
		t.Fatal("old refresh token must be revoked after rotation")
	}

	if err := env.service.Logout(ctx, rotated, rotated.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := env.service.SessionFromToken(ctx, rotated.Token); err == nil {
		t.Fatal("access token must be revoked after logout")
	}
	if _, err := env.service.Refresh(ctx, rotated.RefreshToken); err == nil {
		t.Fatal("refresh token must be revoked after logout")
	}
}

func TestCreateProjectValidatesName(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	user := env.seedUser(t, "u1", "Alice", "user")

	_, err := env.service.CreateProject(ctx, env.sessionFor(user), "   ", "")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestProjectAccessControl(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	owner := env.seedUser(t, "u1", "Alice", "user")
	other := env.seedUser(t, "u2", "Bob", "user")
	admin := env.seedUser(t, "u3", "Root", "admin")

	project, err := env.service.CreateProject(ctx, env.sessionFor(owner), "Refonte CRM", "desc")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	if _, err := env.service.GetProject(ctx, env.sessionFor(owner), project.ID); err != nil {
		t.Fatalf("owner read: %v", err)
	}

	_, err = env.service.GetProject(ctx, env.sessionFor(other), project.ID)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN for non-owner, got %v", err)
	}

	if _, err := env.service.GetProject(ctx, env.sessionFor(admin), project.ID); err != nil {
		t.Fatalf("admin read: %v", err)
	}

	ownerList, err := env.service.ListProjects(ctx, env.sessionFor(other))
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(ownerList) != 0 {
		t.Fatalf("non-owner must not see the project, got %d", len(ownerList))
	}
	adminList, err := env.service.ListProjects(ctx, env.sessionFor(admin))
	if err != nil {
		t.Fatalf("ListProjects admin: %v", err)
	}
	if len(adminList) != 1 {
		t.Fatalf("admin must see all projects, got %d", len(adminList))
	}
}

func TestSetValidationAdvancesPhaseAndNotifies(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	user := env.seedUser(t, "u1", "Alice", "user")
	sess := env.sessionFor(user)

	project, err := env.service.CreateProject(ctx, sess, "Refonte CRM", "")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	events, cancel := env.service.Subscribe(sess)
	defer cancel()

	updated, err := env.service.SetValidation(ctx, sess, project.ID, scoping.PhaseInitial, true, "ok pour moi")
	if err != nil {
		t.Fatalf("SetValidation: %v", err)
	}
	if updated.CurrentPhase != scoping.PhaseOptions {
		t.Fatalf("validating initial must advance to options, got %s", updated.CurrentPhase)
	}
	if updated.Data.Initial.ValidationComment != "ok pour moi" {
		t.Fatalf("comment not recorded: %q", updated.Data.Initial.ValidationComment)
	}

	stored := env.store.projects[project.ID]
	if stored.CurrentPhase != scoping.PhaseOptions {
		t.Fatalf("persisted phase must match, got %s", stored.CurrentPhase)
	}

	select {
	case event := <-events:
		if event.Type != EventProjectUpdated || event.ProjectID != project.ID {
			t.Fatalf("unexpected event: %+v", event)
		}
		if event.Project == nil || event.Project.CurrentPhase != scoping.PhaseOptions {
			t.Fatalf("event must carry the post-write snapshot: %+v", event.Project)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a watch event after the mutation")
	}

	// Un-validating initial cascades to the phases above it.
	if _, err := env.service.SetValidation(ctx, sess, project.ID, scoping.PhaseOptions, true, ""); err != nil {
		t.Fatalf("validate options: %v", err)
	}
	downgraded, err := env.service.SetValidation(ctx, sess, project.ID, scoping.PhaseInitial, false, "")
	if err != nil {
		t.Fatalf("unvalidate initial: %v", err)
	}
	if downgraded.CurrentPhase != scoping.PhaseInitial {
		t.Fatalf("cascade must drop back to initial, got %s", downgraded.CurrentPhase)
	}
	if downgraded.Data.Options.Validated {
		t.Fatal("options must be un-validated by the cascade")
	}
}

func TestSetValidationEmailsStakeholders(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.mail.configured = true
	user := env.seedUser(t, "u1", "Alice", "user")
	sess := env.sessionFor(user)

	project, err := env.service.CreateProject(ctx, sess, "Refonte CRM", "")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := env.service.AddStakeholder(ctx, sess, project.ID, scoping.Stakeholder{
		FirstName: "Marie", LastName: "Dupont", Email: "marie@example.com",
	}); err != nil {
		t.Fatalf("AddStakeholder: %v", err)
	}

	if _, err := env.service.SetValidation(ctx, sess, project.ID, scoping.PhaseInitial, true, ""); err != nil {
		t.Fatalf("SetValidation: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		env.mail.mu.Lock()
		sent := len(env.mail.validated)
		env.mail.mu.Unlock()
		if sent == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected a phase-validated email")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRequestApproval(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	user := env.seedUser(t, "u1", "Alice", "user")
	sess := env.sessionFor(user)

	project, err := env.service.CreateProject(ctx, sess, "Refonte CRM", "")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	withEmail, err := env.service.AddStakeholder(ctx, sess, project.ID, scoping.Stakeholder{
		FirstName: "Marie", LastName: "Dupont", Email: "marie@example.com",
	})
	if err != nil {
		t.Fatalf("AddStakeholder: %v", err)
	}
	withoutEmail, err := env.service.AddStakeholder(ctx, sess, project.ID, scoping.Stakeholder{
		FirstName: "Paul", LastName: "Martin",
	})
	if err != nil {
		t.Fatalf("AddStakeholder: %v", err)
	}
	emailID := withEmail.Data.Stakeholders[0].ID
	noEmailID := withoutEmail.Data.Stakeholders[1].ID

	var domainErr *DomainError

	err = env.service.RequestApproval(ctx, sess, project.ID, scoping.PhaseInitial, "ghost")
	if !errors.As(err, &domainErr) || domainErr.Status != 404 {
		t.Fatalf("unknown stakeholder must 404, got %v", err)
	}

	err = env.service.RequestApproval(ctx, sess, project.ID, scoping.PhaseInitial, noEmailID)
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("stakeholder without email must fail validation, got %v", err)
	}

	err = env.service.RequestApproval(ctx, sess, project.ID, scoping.PhaseInitial, emailID)
	if !errors.As(err, &domainErr) || domainErr.Code != "EMAIL_NOT_CONFIGURED" {
		t.Fatalf("unconfigured SMTP must 503, got %v", err)
	}

	env.mail.configured = true
	if err := env.service.RequestApproval(ctx, sess, project.ID, scoping.PhaseInitial, emailID); err != nil {
		t.Fatalf("RequestApproval: %v", err)
	}
	if len(env.mail.approvals) != 1 || env.mail.approvals[0] != "marie@example.com" {
		t.Fatalf("unexpected approval mail log: %v", env.mail.approvals)
	}
}

func TestDeleteProjectCleansUp(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	user := env.seedUser(t, "u1", "Alice", "user")
	sess := env.sessionFor(user)

	project, err := env.service.CreateProject(ctx, sess, "Refonte CRM", "")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if err := env.service.DeleteProject(ctx, sess, project.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}

	if len(env.history.removed) != 1 || env.history.removed[0] != project.ID {
		t.Fatalf("history must be removed with the project: %v", env.history.removed)
	}
	if len(env.search.deleted) != 1 || env.search.deleted[0] != project.ID {
		t.Fatalf("search index must be purged with the project: %v", env.search.deleted)
	}
	if _, err := env.service.GetProject(ctx, sess, project.ID); err == nil {
		t.Fatal("project must be gone")
	}
}

func TestDeleteDefaultChecklistItemIsNoOp(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	user := env.seedUser(t, "u1", "Alice", "user")
	sess := env.sessionFor(user)

	project, err := env.service.CreateProject(ctx, sess, "Refonte CRM", "")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	defaultID := project.Data.Initial.Checklist[0].ID

	updated, err := env.service.DeleteChecklistItem(ctx, sess, project.ID, scoping.PhaseInitial, defaultID)
	if err != nil {
		t.Fatalf("deleting a default item must not error: %v", err)
	}
	if len(updated.Data.Initial.Checklist) != len(project.Data.Initial.Checklist) {
		t.Fatal("default item must survive the delete")
	}
}

func TestSearchRecordFlattensContent(t *testing.T) {
	project := scoping.NewProject("Refonte CRM", "Modernisation", "u1")
	project.ID = "prj1"
	project.CurrentPhase = scoping.PhaseInitial
	project.Data.Initial.Sections[0].Content = "<p>Contexte <strong>important</strong></p>"
	project.Data.Initial.Sections[1].IsHidden = true
	project.Data.Initial.Sections[1].Content = "<p>caché</p>"
	project.Data.Notes = "notes libres"

	record := searchRecord(project)
	if record.ID != "prj1" || record.OwnerID != "u1" {
		t.Fatalf("unexpected record identity: %+v", record)
	}
	if record.Notes != "notes libres" {
		t.Fatalf("notes missing: %q", record.Notes)
	}
	if !strings.Contains(record.SectionText, "Contexte important") {
		t.Fatalf("markup must be flattened to words, got %q", record.SectionText)
	}
	if strings.Contains(record.SectionText, "caché") {
		t.Fatal("hidden sections must not be indexed")
	}
	if strings.Contains(record.SectionText, "<p>") {
		t.Fatal("tags must be stripped")
	}
}
