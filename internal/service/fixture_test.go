package service

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"ideaportal/internal/database"
	"ideaportal/internal/mailer"
	"ideaportal/internal/model"
	"ideaportal/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordedEvent struct {
	to    uuid.UUID // uuid.Nil for broadcasts
	event string
	data  interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) PublishTo(employeeID uuid.UUID, event string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{to: employeeID, event: event, data: data})
}

func (p *recordingPublisher) PublishAll(event string, data interface{}) {
	p.PublishTo(uuid.Nil, event, data)
}

func (p *recordingPublisher) Events() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}

type recordingMail struct {
	mu   sync.Mutex
	jobs []mailer.Job
}

func (m *recordingMail) Enqueue(job mailer.Job) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return "job-" + job.NotificationID.String(), nil
}

func (m *recordingMail) Jobs() []mailer.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Job(nil), m.jobs...)
}

// fixture is a small organization on a fresh SQLite database:
// division A with departments A1 and A2, division B with department B1.
type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB
	log zerolog.Logger

	divA, divB             uuid.UUID
	deptA1, deptA2, deptB1 uuid.UUID

	initiator     model.Employee
	leaderA1      model.Employee
	deptManagerA1 model.Employee
	seniorMgrA1   model.Employee
	divisionGMA   model.Employee
	finController model.Employee
	finDirector   model.Employee
	executive     model.Employee
	admin         model.Employee
	leaderB1      model.Employee

	ideaRepo         repository.IdeaRepository
	historyRepo      repository.ApprovalHistoryRepository
	userRepo         repository.UserRepository
	employeeRepo     repository.EmployeeRepository
	notificationRepo repository.NotificationRepository
	settingRepo      repository.SettingRepository
	txManager        repository.TransactionManager

	settings   SettingService
	classifier WorkflowClassifier
	resolver   ApproverResolver
	dispatcher NotificationDispatcher
	workflow   WorkflowService
	ideas      IdeaService

	mail   *recordingMail
	events *recordingPublisher
}

func newFixture(t *testing.T, strict bool) *fixture {
	t.Helper()

	db, err := database.NewSQLiteConnection(filepath.Join(t.TempDir(), "ideas.db"))
	require.NoError(t, err)

	f := &fixture{t: t, ctx: context.Background(), db: db, log: zerolog.New(io.Discard)}

	f.txManager = repository.NewTransactionManager(db)
	f.ideaRepo = repository.NewIdeaRepository(db)
	f.historyRepo = repository.NewApprovalHistoryRepository(db)
	f.userRepo = repository.NewUserRepository(db)
	f.employeeRepo = repository.NewEmployeeRepository(db)
	f.notificationRepo = repository.NewNotificationRepository(db)
	f.settingRepo = repository.NewSettingRepository(db)
	roleRepo := repository.NewRoleRepository(db)

	require.NoError(t, NewRoleService(f.txManager, roleRepo, f.log).SeedDefaultRoles(f.ctx))
	f.seedOrganization()

	f.mail = &recordingMail{}
	f.events = &recordingPublisher{}
	f.settings = NewSettingService(f.settingRepo, repository.NewAuditRepository(db), f.log)
	f.classifier = NewWorkflowClassifier(f.settings)
	f.resolver = NewApproverResolver(roleRepo, f.userRepo, f.ideaRepo, f.log)
	f.dispatcher = NewNotificationDispatcher(f.resolver, f.employeeRepo, f.notificationRepo, f.mail, f.events, "https://ideas.example.com/", f.log)
	f.workflow = f.newWorkflow(f.ideaRepo, strict)
	f.ideas = NewIdeaService(f.txManager, f.ideaRepo, f.historyRepo, f.employeeRepo, f.notificationRepo, f.classifier, f.dispatcher, f.log)
	return f
}

func (f *fixture) newWorkflow(ideas repository.IdeaRepository, strict bool) WorkflowService {
	return NewWorkflowService(f.txManager, ideas, f.historyRepo, f.userRepo, f.resolver, f.dispatcher, WorkflowOptions{StrictAuthorization: strict}, f.log)
}

func (f *fixture) seedOrganization() {
	divA := model.Division{Code: "DIV-A", Name: "Operations"}
	divB := model.Division{Code: "DIV-B", Name: "Commercial"}
	require.NoError(f.t, f.db.Create(&divA).Error)
	require.NoError(f.t, f.db.Create(&divB).Error)

	deptA1 := model.Department{DivisionID: divA.ID, Code: "A1", Name: "Plant Maintenance"}
	deptA2 := model.Department{DivisionID: divA.ID, Code: "A2", Name: "Logistics"}
	deptB1 := model.Department{DivisionID: divB.ID, Code: "B1", Name: "Sales"}
	for _, d := range []*model.Department{&deptA1, &deptA2, &deptB1} {
		require.NoError(f.t, f.db.Create(d).Error)
	}
	f.divA, f.divB = divA.ID, divB.ID
	f.deptA1, f.deptA2, f.deptB1 = deptA1.ID, deptA2.ID, deptB1.ID

	f.initiator = f.addMember("initiator", model.RoleEmployee, &f.divA, &f.deptA1)
	f.leaderA1 = f.addMember("leader-a1", model.RoleWorkstreamLeader, &f.divA, &f.deptA1)
	f.deptManagerA1 = f.addMember("manager-a1", model.RoleDepartmentManager, &f.divA, &f.deptA1)
	f.seniorMgrA1 = f.addMember("senior-a1", model.RoleSeniorManager, &f.divA, &f.deptA1)
	f.divisionGMA = f.addMember("gm-a", model.RoleDivisionGM, &f.divA, nil)
	f.finController = f.addMember("fin-controller", model.RoleFinanceController, nil, nil)
	f.finDirector = f.addMember("fin-director", model.RoleFinanceDirector, nil, nil)
	f.executive = f.addMember("executive", model.RoleExecutiveDirector, nil, nil)
	f.admin = f.addMember("admin", model.RoleSystemAdministrator, nil, nil)
	f.leaderB1 = f.addMember("leader-b1", model.RoleWorkstreamLeader, &f.divB, &f.deptB1)
}

func (f *fixture) addMember(name, roleID string, divisionID, departmentID *uuid.UUID) model.Employee {
	return f.addUser(name, roleID, divisionID, departmentID, false)
}

func (f *fixture) addUser(name, roleID string, divisionID, departmentID *uuid.UUID, acting bool) model.Employee {
	f.t.Helper()
	employee := model.Employee{
		EmployeeNo:       "E-" + name,
		Name:             name,
		Email:            name + "@example.com",
		DivisionID:       divisionID,
		DepartmentID:     departmentID,
		EmploymentStatus: model.EmploymentActive,
	}
	require.NoError(f.t, f.employeeRepo.Create(f.ctx, &employee))
	require.NoError(f.t, f.userRepo.Create(f.ctx, &model.User{
		EmployeeID: employee.ID,
		RoleID:     roleID,
		Username:   name,
		IsActive:   true,
		IsActing:   acting,
	}))
	return employee
}

func (f *fixture) deactivateUsers(employeeID uuid.UUID) {
	f.t.Helper()
	require.NoError(f.t, f.db.Model(&model.User{}).Where("employee_id = ?", employeeID).Update("is_active", false).Error)
}

func (f *fixture) submit(cost string) *model.Idea {
	f.t.Helper()
	idea, err := f.ideas.CreateIdea(f.ctx, f.initiator.ID, CreateIdeaRequest{
		Title:       "Reuse pallet wrap",
		Description: "Switch to reusable wrap on the outbound line",
		SavingCost:  cost,
	})
	require.NoError(f.t, err)
	return idea
}

func (f *fixture) approve(ideaID uuid.UUID, approver model.Employee) (*model.Idea, error) {
	return f.workflow.Advance(f.ctx, AdvanceInput{IdeaID: ideaID, ApproverEmployeeID: approver.ID, Comments: "ok"})
}

func (f *fixture) reload(ideaID uuid.UUID) *model.Idea {
	f.t.Helper()
	idea, err := f.ideaRepo.FindByID(f.ctx, ideaID)
	require.NoError(f.t, err)
	return idea
}

func (f *fixture) notificationsFor(ideaID uuid.UUID) []model.Notification {
	f.t.Helper()
	var rows []model.Notification
	require.NoError(f.t, f.db.Where("idea_id = ?", ideaID).Order("created_at asc").Find(&rows).Error)
	return rows
}

func (f *fixture) historyCount(ideaID uuid.UUID) int64 {
	f.t.Helper()
	n, err := f.historyRepo.CountByIdea(f.ctx, ideaID)
	require.NoError(f.t, err)
	return n
}

// typesFor returns the notification types sent to recipient, in no particular order
func typesFor(rows []model.Notification, recipient uuid.UUID) []string {
	var types []string
	for _, n := range rows {
		if n.RecipientEmployeeID == recipient {
			types = append(types, n.Type)
		}
	}
	return types
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
