package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"scopilot/api/internal/auth"
	"scopilot/api/internal/authpw"
	"scopilot/api/internal/config"
	"scopilot/api/internal/email"
	"scopilot/api/internal/export"
	"scopilot/api/internal/history"
	"scopilot/api/internal/rbac"
	"scopilot/api/internal/scoping"
	"scopilot/api/internal/search"
	"scopilot/api/internal/session"
	"scopilot/api/internal/store"
	"scopilot/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	IsExternal   bool
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
	ListProjects(ctx context.Context, ownerID string, includeAll bool) ([]store.ProjectSummary, error)
	GetProject(ctx context.Context, projectID string) (scoping.Project, error)
	InsertProject(ctx context.Context, project scoping.Project) error
	UpdateProjectData(ctx context.Context, projectID string, currentPhase scoping.Phase, data scoping.ProjectData) error
	UpdateProjectDetails(ctx context.Context, projectID, name, description string) error
	DeleteProject(ctx context.Context, projectID string) error
	Ping(ctx context.Context) error
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	Ping(ctx context.Context) error
}

type historyStore interface {
	Snapshot(project scoping.Project, author, message string) (history.Entry, error)
	History(projectID string, limit int) ([]history.Entry, error)
	GetSnapshot(projectID, hash string) (scoping.Project, error)
	Remove(projectID string) error
}

type searchIndex interface {
	Search(q search.Query) search.Response
	IndexProject(record search.ProjectRecord)
	DeleteProject(id string)
}

type exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

type mailer interface {
	IsConfigured() bool
	SendApprovalRequest(to string, data email.ApprovalRequestData) error
	SendPhaseValidated(to []string, data email.PhaseValidatedData) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	history  historyStore
	search   searchIndex
	export   exporter
	mail     mailer
	authpw   *authpw.Service
	watch    *WatchHub
}

// New wires a service with refresh sessions stored in Postgres.
func New(
	cfg config.Config,
	dataStore *store.PostgresStore,
	historySvc *history.Service,
	searchSvc *search.Service,
	exportSvc *export.Service,
	mailSvc *email.Service,
) *Service {
	svc := newService(cfg, dataStore, historySvc, searchSvc, exportSvc, mailSvc)
	svc.sessions = pgSessionStore{store: dataStore}
	return svc
}

// NewWithSessionStore wires a service with refresh sessions held in Redis.
func NewWithSessionStore(
	cfg config.Config,
	dataStore *store.PostgresStore,
	sessions *session.RedisStore,
	historySvc *history.Service,
	searchSvc *search.Service,
	exportSvc *export.Service,
	mailSvc *email.Service,
) *Service {
	svc := newService(cfg, dataStore, historySvc, searchSvc, exportSvc, mailSvc)
	svc.sessions = sessions
	return svc
}

func newService(
	cfg config.Config,
	dataStore *store.PostgresStore,
	historySvc *history.Service,
	searchSvc *search.Service,
	exportSvc *export.Service,
	mailSvc *email.Service,
) *Service {
	return &Service{
		cfg:     cfg,
		store:   dataStore,
		history: historySvc,
		search:  searchSvc,
		export:  exportSvc,
		mail:    mailSvc,
		authpw:  authpw.NewService(dataStore),
		watch:   NewWatchHub(),
	}
}

// pgSessionStore adapts the Postgres refresh-session tables to the richer
// Redis-shaped interface. The identity snapshot is not stored; lookups join
// the users table instead.
type pgSessionStore struct {
	store *store.PostgresStore
}

func (p pgSessionStore) SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error {
	return p.store.SaveRefreshSession(ctx, tokenHash, user.ID, expiresAt)
}

func (p pgSessionStore) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	return p.store.LookupRefreshSession(ctx, tokenHash)
}

func (p pgSessionStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	return p.store.RevokeRefreshSession(ctx, tokenHash)
}

func (p pgSessionStore) Ping(ctx context.Context) error {
	return p.store.Ping(ctx)
}

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

func (s *Service) SMTPConfigured() bool {
	return s.mail != nil && s.mail.IsConfigured()
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

func (s *Service) isAdmin(role string) bool {
	return rbac.Normalize(role) == rbac.RoleAdmin
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) PingSessions(ctx context.Context) error {
	if s.sessions == nil {
		return errors.New("session store not configured")
	}
	return s.sessions.Ping(ctx)
}

// Subscribe attaches a live listener for the session's visible projects:
// admins watch everything, users watch their own.
func (s *Service) Subscribe(sess Session) (<-chan Event, func()) {
	key := sess.UserID
	if s.isAdmin(sess.Role) {
		key = watchAll
	}
	return s.watch.Subscribe(key)
}

// CreateSession issues a fresh access/refresh token pair for a user id.
// Called after a successful password sign-in or sign-up.
func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates the refresh token: the presented one is revoked and a new
// pair is issued from the identity snapshot stored with the session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Role: user.Role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         user.Role,
		IsExternal:   user.IsExternal,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}
	if user.DeactivatedAt != nil {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:      token,
		UserID:     user.ID,
		UserName:   user.DisplayName,
		Role:       user.Role,
		IsExternal: user.IsExternal,
		JTI:        claims.JTI,
		ExpiresAt:  time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, sess Session, refreshToken string) error {
	if sess.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, sess.JTI, sess.ExpiresAt)
	}
	if refreshToken != "" && s.sessions != nil {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// --- Projects ---

func (s *Service) ListProjects(ctx context.Context, sess Session) ([]store.ProjectSummary, error) {
	summaries, err := s.store.ListProjects(ctx, sess.UserID, s.isAdmin(sess.Role))
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []store.ProjectSummary{}
	}
	return summaries, nil
}

func (s *Service) CreateProject(ctx context.Context, sess Session, name, description string) (scoping.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return scoping.Project{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}

	project := scoping.NewProject(name, strings.TrimSpace(description), sess.UserID)
	project.ID = util.NewID("prj")
	project.UpdatedAt = project.CreatedAt

	if err := s.store.InsertProject(ctx, project); err != nil {
		return scoping.Project{}, err
	}
	s.afterWrite(project, sess, "create project")
	return project, nil
}

func (s *Service) GetProject(ctx context.Context, sess Session, projectID string) (scoping.Project, error) {
	return s.loadProject(ctx, sess, projectID)
}

func (s *Service) UpdateProjectDetails(ctx context.Context, sess Session, projectID, name, description string) (scoping.Project, error) {
	project, err := s.loadProject(ctx, sess, projectID)
	if err != nil {
		return scoping.Project{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return scoping.Project{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	project.Name = name
	project.Description = strings.TrimSpace(description)
	project.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateProjectDetails(ctx, project.ID, project.Name, project.Description); err != nil {
		return scoping.Project{}, err
	}
	s.afterWrite(project, sess, "update project details")
	return project, nil
}

func (s *Service) DeleteProject(ctx context.Context, sess Session, projectID string) error {
	project, err := s.loadProject(ctx, sess, projectID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	if s.history != nil {
		if err := s.history.Remove(projectID); err != nil {
			log.Printf("history: remove %s: %v", projectID, err)
		}
	}
	if s.search != nil {
		s.search.DeleteProject(projectID)
	}
	if s.watch != nil {
		s.watch.Publish(project.OwnerID, Event{Type: EventProjectDeleted, ProjectID: projectID})
	}
	return nil
}

func (s *Service) UpdateNotes(ctx context.Context, sess Session, projectID, notes string) (scoping.Project, error) {
	return s.mutateProject(ctx, sess, projectID, "update notes", func(d *scoping.ProjectData) error {
		d.Notes = notes
		return nil
	})
}

// --- Checklist ---

func (s *Service) AddChecklistItem(ctx context.Context, sess Session, projectID string, phase scoping.Phase, text string) (scoping.Project, error) {
	if strings.TrimSpace(text) == "" {
		return scoping.Project{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "text is required", nil)
	}
	return s.mutateProject(ctx, sess, projectID, "add checklist item", func(d *scoping.ProjectData) error {
		return d.AddChecklistItem(phase, text)
	})
}

func (s *Service) DeleteChecklistItem(ctx context.Context, sess Session, projectID string, phase scoping.Phase, itemID string) (scoping.Project, error) {
	return s.mutateProject(ctx, sess, projectID, "delete checklist item", func(d *scoping.ProjectData) error {
		return d.DeleteChecklistItem(phase, itemID)
	})
}

// UpdateChecklistItem applies the non-nil flags to one item. Both flags may
// arrive in the same request.
func (s *Service) UpdateChecklistItem(ctx context.Context, sess Session, projectID string, phase scoping.Phase, itemID string, checked, hidden *bool) (scoping.Project, error) {
	return s.mutateProject(ctx, sess, projectID, "update checklist item", func(d *scoping.ProjectData) error {
		if checked != nil {
			if err := d.SetChecklistItemChecked(phase, itemID, *checked); err != nil {
				return err
			}
		}
		if hidden != nil {
			if err := d.SetChecklistItemHidden(phase, itemID, *hidden); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) ReorderChecklist(ctx context.Context, sess Session, projectID string, phase scoping.Phase, source, destination int) (scoping.Project, error) {
	return s.mutateProject(ctx, sess, projectID, "reorder checklist", func(d *scoping.ProjectData) error {
		return d.ReorderChecklist(phase, source, destination)
	})
}

// --- Sections ---

func (s *Service) AddSection(ctx context.Context, sess Session, projectID string, phase scoping.Phase, input scoping.NewSectionInput) (scoping.Project, error) {
	if strings.TrimSpace(input.Title) == "" {
		return scoping.Project{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	return s.mutateProject(ctx, sess, projectID, "add section", func(d *scoping.ProjectData) error {
		_, err := d.AddSection(phase, input)
		return err
	})
}

func (s *Service) UpdateSection(ctx context.Context, sess Session, projectID string, phase scoping.Phase, sectionID string, update scoping.SectionUpdate) (scoping.Project, error) {
	return s.mutateProject(ctx, sess, projectID, "update section", func(d *scoping.ProjectData) error {
		return d.UpdateSection(phase, sectionID, update)
	})
}

func (s *Service) DeleteSection(ctx context.Context, sess Session, projectID string, phase scoping.Phase, sectionID string) (scoping.Project, error) {
	return s.mutateProject(ctx, sess, projectID, "delete section", func(d *scoping.ProjectData) error {
		return d.DeleteSection(phase, sectionID)
	})
}

func (s *Service) ReorderSections(ctx context.Context, sess Session, projectID string, phase scoping.Phase, source, destination int) (scoping.Project, error) {
	return s.mutateProject(ctx, sess, projectID, "reorder sections", func(d *scoping.ProjectData) error {
		return d.ReorderSections(phase, source, destination)
	})
}

// --- Validation and approvals ---

// SetValidation flips the phase's validated flag (with cascade and scenario
// replication inside the domain layer) and records an optional comment. When
// a phase becomes validated, stakeholders with an email address are notified.
func (s *Service) SetValidation(ctx context.Context, sess Session, projectID string, phase scoping.Phase, validated bool, comment string) (scoping.Project, error) {
	project, err := s.mutateProject(ctx, sess, projectID, "set validation", func(d *scoping.ProjectData) error {
		if err := d.SetValidation(phase, validated); err != nil {
			return err
		}
		if validated {
			d.PhaseData(phase).ValidationComment = strings.TrimSpace(comment)
		}
		return nil
	})
	if err != nil {
		return scoping.Project{}, err
	}

	if validated && s.SMTPConfigured() {
		go s.notifyPhaseValidated(project, phase, sess.UserName, strings.TrimSpace(comment))
	}
	return project, nil
}

func (s *Service) notifyPhaseValidated(project scoping.Project, phase scoping.Phase, validatedBy, comment string) {
	var recipients []string
	for _, stakeholder := range project.Data.Stakeholders {
		if addr := strings.TrimSpace(stakeholder.Email); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	if len(recipients) == 0 {
		return
	}
	err := s.mail.SendPhaseValidated(recipients, email.PhaseValidatedData{
		AppName:     "Scopilot",
		ProjectName: project.Name,
		PhaseLabel:  phase.Label(),
		ValidatedBy: validatedBy,
		Comment:     comment,
	})
	if err != nil {
		log.Printf("email: phase validated %s: %v", project.ID, err)
	}
}

func (s *Service) SetApproval(ctx context.Context, sess Session, projectID string, phase scoping.Phase, stakeholderID string, approved bool) (scoping.Project, error) {
	return s.mutateProject(ctx, sess, projectID, "set approval", func(d *scoping.ProjectData) error {
		return d.SetApproval(phase, stakeholderID, approved)
	})
}

// RequestApproval emails a stakeholder asking them to sign off on a phase.
// It does not mutate the project.
func (s *Service) RequestApproval(ctx context.Context, sess Session, projectID string, phase scoping.Phase, stakeholderID string) error {
	project, err := s.loadProject(ctx, sess, projectID)
	if err != nil {
		return err
	}

	var target *scoping.Stakeholder
	for i := range project.Data.Stakeholders {
		if project.Data.Stakeholders[i].ID == stakeholderID {
			target = &project.Data.Stakeholders[i]
			break
		}
	}
	if target == nil {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Stakeholder not found", nil)
	}
	if strings.TrimSpace(target.Email) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "stakeholder has no email address", nil)
	}
	if !s.SMTPConfigured() {
		return domainError(http.StatusServiceUnavailable, "EMAIL_NOT_CONFIGURED", "Email delivery is not configured", nil)
	}

	err = s.mail.SendApprovalRequest(target.Email, email.ApprovalRequestData{
		AppName:         "Scopilot",
		StakeholderName: strings.TrimSpace(target.FirstName + " " + target.LastName),
		ProjectName:     project.Name,
		PhaseLabel:      phase.Label(),
		RequestedBy:     sess.UserName,
	})
	if err != nil {
		return domainError(http.StatusBadGateway, "EMAIL_SEND_FAILED", "Could not send the approval request", nil)
	}
	return nil
}

// --- Stakeholders ---

func (s *Service) AddStakeholder(ctx context.Context, sess Session, projectID string, stakeholder scoping.Stakeholder) (scoping.Project, error) {
	if strings.TrimSpace(stakeholder.FirstName) == "" && strings.TrimSpace(stakeholder.LastName) == "" {
		return scoping.Project{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "a name is required", nil)
	}
	stakeholder.ID = util.NewID("stk")
	return s.mutateProject(ctx, sess, projectID, "add stakeholder", func(d *scoping.ProjectData) error {
		d.AddStakeholder(stakeholder)
		return nil
	})
}

func (s *Service) UpdateStakeholder(ctx context.Context, sess Session, projectID string, stakeholder scoping.Stakeholder) (scoping.Project, error) {
	return s.mutateProject(ctx, sess, projectID, "update stakeholder", func(d *scoping.ProjectData) error {
		if !d.UpdateStakeholder(stakeholder) {
			return domainError(http.StatusNotFound, "NOT_FOUND", "Stakeholder not found", nil)
		}
		return nil
	})
}

func (s *Service) RemoveStakeholder(ctx context.Context, sess Session, projectID, stakeholderID string) (scoping.Project, error) {
	return s.mutateProject(ctx, sess, projectID, "remove stakeholder", func(d *scoping.ProjectData) error {
		d.RemoveStakeholder(stakeholderID)
		return nil
	})
}

// --- Scenarios ---

func (s *Service) SelectScenario(ctx context.Context, sess Session, projectID, scenarioID string) (scoping.Project, error) {
	return s.mutateProject(ctx, sess, projectID, "select scenario", func(d *scoping.ProjectData) error {
		return d.SelectScenario(scenarioID)
	})
}

func (s *Service) UpdateScenarioSection(ctx context.Context, sess Session, projectID string, slot scoping.ScenarioSlot, sectionID string, update scoping.ScenarioContentUpdate) (scoping.Project, error) {
	return s.mutateProject(ctx, sess, projectID, "update scenario content", func(d *scoping.ProjectData) error {
		return d.UpdateScenarioSectionContent(slot, sectionID, update)
	})
}

// --- Progress ---

type PhaseStatus struct {
	Phase      scoping.Phase    `json:"phase"`
	Label      string           `json:"label"`
	Validated  bool             `json:"validated"`
	Accessible bool             `json:"accessible"`
	Ready      bool             `json:"ready"`
	Progress   scoping.Progress `json:"progress"`
}

type ProgressReport struct {
	ProjectID    string           `json:"projectId"`
	CurrentPhase scoping.Phase    `json:"currentPhase"`
	Combined     scoping.Progress `json:"combined"`
	Phases       []PhaseStatus    `json:"phases"`
}

func (s *Service) Progress(ctx context.Context, sess Session, projectID string) (ProgressReport, error) {
	project, err := s.loadProject(ctx, sess, projectID)
	if err != nil {
		return ProgressReport{}, err
	}

	report := ProgressReport{
		ProjectID:    project.ID,
		CurrentPhase: scoping.CurrentPhase(project.Data),
		Combined:     scoping.CombinedProgress(project.Data),
	}
	for _, phase := range scoping.Phases {
		report.Phases = append(report.Phases, PhaseStatus{
			Phase:      phase,
			Label:      phase.Label(),
			Validated:  project.Data.PhaseData(phase).Validated,
			Accessible: scoping.Accessible(project.Data, phase),
			Ready:      scoping.ValidationReady(project.Data, phase),
			Progress:   scoping.PhaseProgress(project.Data, phase),
		})
	}
	return report, nil
}

// --- Export, history, search ---

func (s *Service) Export(ctx context.Context, sess Session, projectID string, phase scoping.Phase, format export.Format, external bool) (*export.Result, error) {
	project, err := s.loadProject(ctx, sess, projectID)
	if err != nil {
		return nil, err
	}
	if s.export == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}

	result, err := s.export.Export(ctx, export.Request{
		Project:  project,
		Phase:    phase,
		Format:   format,
		External: external,
	})
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), nil)
		}
		return nil, err
	}
	return result, nil
}

func (s *Service) History(ctx context.Context, sess Session, projectID string, limit int) ([]history.Entry, error) {
	if _, err := s.loadProject(ctx, sess, projectID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []history.Entry{}, nil
	}
	entries, err := s.history.History(projectID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	return entries, nil
}

func (s *Service) HistorySnapshot(ctx context.Context, sess Session, projectID, hash string) (scoping.Project, error) {
	if _, err := s.loadProject(ctx, sess, projectID); err != nil {
		return scoping.Project{}, err
	}
	if s.history == nil {
		return scoping.Project{}, domainError(http.StatusNotFound, "NOT_FOUND", "Snapshot not found", nil)
	}
	snapshot, err := s.history.GetSnapshot(projectID, hash)
	if err != nil {
		return scoping.Project{}, domainError(http.StatusNotFound, "NOT_FOUND", "Snapshot not found", nil)
	}
	return snapshot, nil
}

func (s *Service) Search(ctx context.Context, sess Session, text, phase string, limit, offset int) (search.Response, error) {
	if phase != "" {
		if _, err := scoping.ParsePhase(phase); err != nil {
			return search.Response{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown phase", nil)
		}
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(search.Query{
		Text:       text,
		OwnerID:    sess.UserID,
		IncludeAll: s.isAdmin(sess.Role),
		Phase:      phase,
		Limit:      limit,
		Offset:     offset,
	}), nil
}

// --- Write plumbing ---

func (s *Service) loadProject(ctx context.Context, sess Session, projectID string) (scoping.Project, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return scoping.Project{}, err
	}
	if !rbac.CanAccessProject(rbac.Normalize(sess.Role), sess.UserID, project.OwnerID) {
		return scoping.Project{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	return project, nil
}

// mutateProject is the read-modify-write cycle every project mutation goes
// through: load, transform in memory, derive the current phase, persist the
// whole blob, then snapshot/index/notify. Concurrent writers race at document
// granularity and the last write wins.
func (s *Service) mutateProject(ctx context.Context, sess Session, projectID, message string, fn func(*scoping.ProjectData) error) (scoping.Project, error) {
	project, err := s.loadProject(ctx, sess, projectID)
	if err != nil {
		return scoping.Project{}, err
	}

	if err := fn(&project.Data); err != nil {
		return scoping.Project{}, mapScopingError(err)
	}

	project.CurrentPhase = scoping.CurrentPhase(project.Data)
	project.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateProjectData(ctx, project.ID, project.CurrentPhase, project.Data); err != nil {
		return scoping.Project{}, err
	}

	s.afterWrite(project, sess, message)
	return project, nil
}

func (s *Service) afterWrite(project scoping.Project, sess Session, message string) {
	if s.history != nil {
		if _, err := s.history.Snapshot(project, sess.UserName, message); err != nil {
			log.Printf("history: snapshot %s: %v", project.ID, err)
		}
	}
	if s.search != nil {
		s.search.IndexProject(searchRecord(project))
	}
	if s.watch != nil {
		s.watch.Publish(project.OwnerID, Event{Type: EventProjectUpdated, ProjectID: project.ID, Project: &project})
	}
}

func mapScopingError(err error) error {
	if errors.Is(err, scoping.ErrUnknownPhase) ||
		errors.Is(err, scoping.ErrUnknownSlot) ||
		errors.Is(err, scoping.ErrIndexOutOfRange) {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	return err
}

// searchRecord builds the indexed document; the same flattened section text
// the store persists for the FTS fallback feeds the Meilisearch index.
func searchRecord(project scoping.Project) search.ProjectRecord {
	return search.ProjectRecord{
		ID:           project.ID,
		Name:         project.Name,
		Description:  project.Description,
		Notes:        project.Data.Notes,
		SectionText:  scoping.SearchText(project.Data),
		OwnerID:      project.OwnerID,
		CurrentPhase: string(project.CurrentPhase),
	}
}
