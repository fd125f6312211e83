package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/lorrc/ticket-workflow/internal/core/domain"
	"github.com/lorrc/ticket-workflow/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockTicketRepository is a mock implementation of ports.TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{}
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByNumberForUpdate(ctx context.Context, ticketNumber string) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) List(ctx context.Context, params ports.ListTicketsRepoParams) ([]*domain.Ticket, int64, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Ticket), args.Get(1).(int64), args.Error(2)
}

func (m *MockTicketRepository) ListByStatus(ctx context.Context, status domain.TicketStatus) ([]*domain.Ticket, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

// MockHistoryRepository is a mock implementation of ports.HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

func NewMockHistoryRepository() *MockHistoryRepository {
	return &MockHistoryRepository{}
}

func (m *MockHistoryRepository) Append(ctx context.Context, entry *domain.TicketHistory) (*domain.TicketHistory, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TicketHistory), args.Error(1)
}

func (m *MockHistoryRepository) ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]*domain.TicketHistory, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TicketHistory), args.Error(1)
}

// MockSequenceRepository is a mock implementation of ports.SequenceRepository
type MockSequenceRepository struct {
	mock.Mock
}

func NewMockSequenceRepository() *MockSequenceRepository {
	return &MockSequenceRepository{}
}

func (m *MockSequenceRepository) Increment(ctx context.Context, year int) (int64, error) {
	args := m.Called(ctx, year)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSequenceRepository) Provision(ctx context.Context, year int) error {
	args := m.Called(ctx, year)
	return args.Error(0)
}

// MockUnitOfWork hands out the same repository mocks for every call.
type MockUnitOfWork struct {
	TicketRepo   *MockTicketRepository
	HistoryRepo  *MockHistoryRepository
	SequenceRepo *MockSequenceRepository
}

func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		TicketRepo:   NewMockTicketRepository(),
		HistoryRepo:  NewMockHistoryRepository(),
		SequenceRepo: NewMockSequenceRepository(),
	}
}

func (u *MockUnitOfWork) Tickets() ports.TicketRepository     { return u.TicketRepo }
func (u *MockUnitOfWork) History() ports.HistoryRepository    { return u.HistoryRepo }
func (u *MockUnitOfWork) Sequences() ports.SequenceRepository { return u.SequenceRepo }

// MockTransactionManager runs callbacks against a MockUnitOfWork and counts
// how many transactions were opened.
type MockTransactionManager struct {
	UoW *MockUnitOfWork

	mu           sync.Mutex
	transactions int
}

func NewMockTransactionManager(uow *MockUnitOfWork) *MockTransactionManager {
	return &MockTransactionManager{UoW: uow}
}

func (m *MockTransactionManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow ports.UnitOfWork) error) error {
	m.mu.Lock()
	m.transactions++
	m.mu.Unlock()
	return fn(ctx, m.UoW)
}

func (m *MockTransactionManager) Pooled() ports.UnitOfWork {
	return m.UoW
}

// Transactions returns the number of WithinTransaction calls.
func (m *MockTransactionManager) Transactions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transactions
}

// MockSequenceAllocator is a mock implementation of ports.SequenceAllocator
type MockSequenceAllocator struct {
	mock.Mock
}

func NewMockSequenceAllocator() *MockSequenceAllocator {
	return &MockSequenceAllocator{}
}

func (m *MockSequenceAllocator) Allocate(ctx context.Context, uow ports.UnitOfWork, year int) (domain.TicketNumber, error) {
	args := m.Called(ctx, uow, year)
	return args.Get(0).(domain.TicketNumber), args.Error(1)
}

// MockTicketService is a mock implementation of ports.TicketService
type MockTicketService struct {
	mock.Mock
}

func NewMockTicketService() *MockTicketService {
	return &MockTicketService{}
}

func (m *MockTicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) GetTicket(ctx context.Context, ticketID uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) ListTickets(ctx context.Context, params ports.ListTicketsParams) (*ports.TicketPage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.TicketPage), args.Error(1)
}

func (m *MockTicketService) ReviewTicket(ctx context.Context, params ports.ReviewTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) EditTicket(ctx context.Context, params ports.EditTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) DeleteTicket(ctx context.Context, params ports.DeleteTicketParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockTicketService) ListHistory(ctx context.Context, ticketID uuid.UUID) ([]*domain.TicketHistory, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TicketHistory), args.Error(1)
}

// MockCSVService is a mock implementation of ports.CSVService
type MockCSVService struct {
	mock.Mock
}

func NewMockCSVService() *MockCSVService {
	return &MockCSVService{}
}

func (m *MockCSVService) ExportPending(ctx context.Context) (*domain.CSVFile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CSVFile), args.Error(1)
}

func (m *MockCSVService) AutoProcess(ctx context.Context, content io.Reader) (*domain.CSVFile, error) {
	args := m.Called(ctx, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CSVFile), args.Error(1)
}

func (m *MockCSVService) Import(ctx context.Context, content io.Reader, actorID *uuid.UUID) (*domain.ImportResult, error) {
	args := m.Called(ctx, content, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportResult), args.Error(1)
}

// MockAutomationService is a mock implementation of ports.AutomationService
type MockAutomationService struct {
	mock.Mock
}

func NewMockAutomationService() *MockAutomationService {
	return &MockAutomationService{}
}

func (m *MockAutomationService) Run(ctx context.Context, actorID *uuid.UUID) (*domain.AutomationReport, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AutomationReport), args.Error(1)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockRunLock is a mock implementation of ports.RunLock
type MockRunLock struct {
	mock.Mock
}

func NewMockRunLock() *MockRunLock {
	return &MockRunLock{}
}

func (m *MockRunLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	args := m.Called(ctx)
	release, _ := args.Get(0).(func())
	return release, args.Bool(1), args.Error(2)
}
