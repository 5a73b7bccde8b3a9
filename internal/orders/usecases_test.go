package orders

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/frank-furt/pos-backend/internal/activitylog"
	"github.com/frank-furt/pos-backend/internal/apperr"
	"github.com/frank-furt/pos-backend/internal/menu"
	"github.com/frank-furt/pos-backend/internal/storage"
)

// MockTx simulates the transaction handle.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	return m.Called().Error(0)
}

func (m *MockTx) Rollback() error {
	return m.Called().Error(0)
}

// MockRepository simulates the order workflow repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) BeginTx(ctx context.Context) (storage.Tx, error) {
	args := m.Called(ctx)
	return args.Get(0).(storage.Tx), args.Error(1)
}

func (m *MockRepository) GetTableForUpdate(ctx context.Context, tx storage.Tx, tableID int) (*Table, error) {
	args := m.Called(ctx, tx, tableID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Table), args.Error(1)
}

func (m *MockRepository) UpdateTableStatus(ctx context.Context, tx storage.Tx, tableID int, status string) error {
	return m.Called(ctx, tx, tableID, status).Error(0)
}

func (m *MockRepository) ReleaseTable(ctx context.Context, tx storage.Tx, tableID int) error {
	return m.Called(ctx, tx, tableID).Error(0)
}

func (m *MockRepository) GetAvailableProduct(ctx context.Context, tx storage.Tx, productID int) (*menu.Product, error) {
	args := m.Called(ctx, tx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*menu.Product), args.Error(1)
}

func (m *MockRepository) GetStockForUpdate(ctx context.Context, tx storage.Tx, productID int) (int, int, error) {
	args := m.Called(ctx, tx, productID)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockRepository) DecrementStock(ctx context.Context, tx storage.Tx, inventoryID, quantity int) (int64, error) {
	args := m.Called(ctx, tx, inventoryID, quantity)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) InsertStockExit(ctx context.Context, tx storage.Tx, inventoryID, quantity int, description string) error {
	return m.Called(ctx, tx, inventoryID, quantity, description).Error(0)
}

func (m *MockRepository) InsertOrder(ctx context.Context, tx storage.Tx, order *Order) (int, error) {
	args := m.Called(ctx, tx, order)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) InsertOrderItem(ctx context.Context, tx storage.Tx, item *OrderItem) error {
	return m.Called(ctx, tx, item).Error(0)
}

func (m *MockRepository) GetOrderForUpdate(ctx context.Context, tx storage.Tx, orderID int) (*Order, error) {
	args := m.Called(ctx, tx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) UpdateOrderStatus(ctx context.Context, tx storage.Tx, orderID int, status string) error {
	return m.Called(ctx, tx, orderID, status).Error(0)
}

func (m *MockRepository) MarkOrderPaid(ctx context.Context, tx storage.Tx, orderID int, method string, tip int64) error {
	return m.Called(ctx, tx, orderID, method, tip).Error(0)
}

func (m *MockRepository) MarkOrderCancelled(ctx context.Context, tx storage.Tx, orderID int, reason string) error {
	return m.Called(ctx, tx, orderID, reason).Error(0)
}

func (m *MockRepository) ListPending(ctx context.Context) ([]PendingOrder, error) {
	args := m.Called(ctx)
	return args.Get(0).([]PendingOrder), args.Error(1)
}

func (m *MockRepository) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) GetOrderItems(ctx context.Context, orderID int) ([]OrderItem, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]OrderItem), args.Error(1)
}

func (m *MockRepository) ListAvailableTables(ctx context.Context) ([]Table, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Table), args.Error(1)
}

func (m *MockRepository) DailySummary(ctx context.Context, day time.Time) (*DailySummary, error) {
	args := m.Called(ctx, day)
	return args.Get(0).(*DailySummary), args.Error(1)
}

// MockActivityWriter simulates the audit trail writer.
type MockActivityWriter struct {
	mock.Mock
}

func (m *MockActivityWriter) AppendTx(ctx context.Context, tx storage.Tx, entryType, description string, relatedID int) error {
	return m.Called(ctx, tx, entryType, description, relatedID).Error(0)
}

func (m *MockActivityWriter) ListRecent(ctx context.Context, limit int) ([]activitylog.Entry, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]activitylog.Entry), args.Error(1)
}

func newTestUseCase(repo Repository, activity *MockActivityWriter) *UseCase {
	return NewUseCase(repo, activity, nil, noop.NewTracerProvider().Tracer("test"))
}

func newTx() *MockTx {
	tx := new(MockTx)
	tx.On("Rollback").Return(nil).Maybe()
	return tx
}

func TestCreateManualOrder_Success(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)
	tx := newTx()
	ctx := context.Background()

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("GetTableForUpdate", ctx, tx, 3).
		Return(&Table{ID: 3, Number: "Mesa 3", Status: TableAvailable}, nil)
	repo.On("GetAvailableProduct", ctx, tx, 5).
		Return(&menu.Product{ID: 5, Name: "Lomito", Price: 12000, Available: true}, nil)
	repo.On("GetStockForUpdate", ctx, tx, 5).Return(7, 10, nil)
	repo.On("InsertOrder", ctx, tx, mock.AnythingOfType("*orders.Order")).Return(42, nil)
	repo.On("InsertOrderItem", ctx, tx, mock.AnythingOfType("*orders.OrderItem")).Return(nil)
	repo.On("DecrementStock", ctx, tx, 7, 2).Return(int64(1), nil)
	repo.On("InsertStockExit", ctx, tx, 7, 2, mock.AnythingOfType("string")).Return(nil)
	repo.On("UpdateTableStatus", ctx, tx, 3, TableOccupied).Return(nil)
	activity.On("AppendTx", ctx, tx, activitylog.TypeManualOrder, mock.AnythingOfType("string"), 42).Return(nil)
	tx.On("Commit").Return(nil).Once()

	uc := newTestUseCase(repo, activity)
	order, err := uc.CreateManualOrder(ctx, CreateOrderRequest{
		TableID:  3,
		Products: []OrderItemInput{{ProductID: 5, Quantity: 2}},
	})

	require.NoError(t, err)
	assert.Equal(t, 42, order.ID)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, int64(24000), order.Total)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(12000), order.Items[0].UnitPrice)
	assert.Equal(t, int64(24000), order.Items[0].Subtotal)
	repo.AssertExpectations(t)
	activity.AssertExpectations(t)
	tx.AssertExpectations(t)
}

func TestCreateManualOrder_EmptyItems(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)

	uc := newTestUseCase(repo, activity)
	_, err := uc.CreateManualOrder(context.Background(), CreateOrderRequest{TableID: 3})

	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	repo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestCreateManualOrder_TableNotAvailable(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)
	tx := newTx()
	ctx := context.Background()

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("GetTableForUpdate", ctx, tx, 3).
		Return(&Table{ID: 3, Number: "Mesa 3", Status: TableOccupied}, nil)

	uc := newTestUseCase(repo, activity)
	_, err := uc.CreateManualOrder(ctx, CreateOrderRequest{
		TableID:  3,
		Products: []OrderItemInput{{ProductID: 5, Quantity: 1}},
	})

	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	repo.AssertNotCalled(t, "InsertOrder", mock.Anything, mock.Anything, mock.Anything)
	tx.AssertNotCalled(t, "Commit")
	tx.AssertCalled(t, "Rollback")
}

func TestCreateManualOrder_TableMissing(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)
	tx := newTx()
	ctx := context.Background()

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("GetTableForUpdate", ctx, tx, 99).Return(nil, pgx.ErrNoRows)

	uc := newTestUseCase(repo, activity)
	_, err := uc.CreateManualOrder(ctx, CreateOrderRequest{
		TableID:  99,
		Products: []OrderItemInput{{ProductID: 5, Quantity: 1}},
	})

	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

// Atomicity: a failure on the second item must leave no order inserted and
// no stock touched, even though the first item validated fine.
func TestCreateManualOrder_InsufficientStockSecondItem(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)
	tx := newTx()
	ctx := context.Background()

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("GetTableForUpdate", ctx, tx, 3).
		Return(&Table{ID: 3, Number: "Mesa 3", Status: TableAvailable}, nil)
	repo.On("GetAvailableProduct", ctx, tx, 5).
		Return(&menu.Product{ID: 5, Name: "Lomito", Price: 12000, Available: true}, nil)
	repo.On("GetStockForUpdate", ctx, tx, 5).Return(7, 10, nil)
	repo.On("GetAvailableProduct", ctx, tx, 6).
		Return(&menu.Product{ID: 6, Name: "Empanada", Price: 3000, Available: true}, nil)
	repo.On("GetStockForUpdate", ctx, tx, 6).Return(8, 1, nil)

	uc := newTestUseCase(repo, activity)
	_, err := uc.CreateManualOrder(ctx, CreateOrderRequest{
		TableID: 3,
		Products: []OrderItemInput{
			{ProductID: 5, Quantity: 2},
			{ProductID: 6, Quantity: 5},
		},
	})

	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	repo.AssertNotCalled(t, "InsertOrder", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	tx.AssertNotCalled(t, "Commit")
}

// The conditional decrement can still report zero affected rows if another
// transaction drained the stock; the whole order must then fail.
func TestCreateManualOrder_DecrementRaceFails(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)
	tx := newTx()
	ctx := context.Background()

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("GetTableForUpdate", ctx, tx, 3).
		Return(&Table{ID: 3, Number: "Mesa 3", Status: TableAvailable}, nil)
	repo.On("GetAvailableProduct", ctx, tx, 5).
		Return(&menu.Product{ID: 5, Name: "Lomito", Price: 12000, Available: true}, nil)
	repo.On("GetStockForUpdate", ctx, tx, 5).Return(7, 10, nil)
	repo.On("InsertOrder", ctx, tx, mock.AnythingOfType("*orders.Order")).Return(42, nil)
	repo.On("InsertOrderItem", ctx, tx, mock.AnythingOfType("*orders.OrderItem")).Return(nil)
	repo.On("DecrementStock", ctx, tx, 7, 2).Return(int64(0), nil)

	uc := newTestUseCase(repo, activity)
	_, err := uc.CreateManualOrder(ctx, CreateOrderRequest{
		TableID:  3,
		Products: []OrderItemInput{{ProductID: 5, Quantity: 2}},
	})

	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	tx.AssertNotCalled(t, "Commit")
}

func TestMarkPaid_Success(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)
	tx := newTx()
	ctx := context.Background()

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("GetOrderForUpdate", ctx, tx, 42).
		Return(&Order{ID: 42, TableID: 3, Status: StatusPending, Total: 24000}, nil)
	repo.On("MarkOrderPaid", ctx, tx, 42, PaymentCash, int64(2000)).Return(nil)
	repo.On("ReleaseTable", ctx, tx, 3).Return(nil)
	activity.On("AppendTx", ctx, tx, activitylog.TypeOrderPaid, mock.AnythingOfType("string"), 42).Return(nil)
	tx.On("Commit").Return(nil).Once()

	uc := newTestUseCase(repo, activity)
	order, err := uc.MarkPaid(ctx, 42, PayRequest{PaymentMethod: PaymentCash, Tip: 2000})

	require.NoError(t, err)
	assert.Equal(t, StatusPaid, order.Status)
	assert.Equal(t, PaymentCash, order.PaymentMethod)
	assert.Equal(t, int64(26000), order.Total+order.Tip)
	repo.AssertExpectations(t)
	tx.AssertExpectations(t)
}

func TestMarkPaid_InvalidMethod(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)

	uc := newTestUseCase(repo, activity)
	_, err := uc.MarkPaid(context.Background(), 42, PayRequest{PaymentMethod: "Cheque"})

	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	repo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestMarkPaid_NegativeTip(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)

	uc := newTestUseCase(repo, activity)
	_, err := uc.MarkPaid(context.Background(), 42, PayRequest{PaymentMethod: PaymentCash, Tip: -100})

	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestMarkPaid_AlreadyFinalized(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)
	tx := newTx()
	ctx := context.Background()

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("GetOrderForUpdate", ctx, tx, 42).
		Return(&Order{ID: 42, TableID: 3, Status: StatusPaid, Total: 24000}, nil)

	uc := newTestUseCase(repo, activity)
	_, err := uc.MarkPaid(ctx, 42, PayRequest{PaymentMethod: PaymentCash})

	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	repo.AssertNotCalled(t, "MarkOrderPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	tx.AssertNotCalled(t, "Commit")
}

func TestCancelOrder_Success(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)
	tx := newTx()
	ctx := context.Background()

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("GetOrderForUpdate", ctx, tx, 42).
		Return(&Order{ID: 42, TableID: 3, Status: StatusPending, Total: 24000}, nil)
	repo.On("MarkOrderCancelled", ctx, tx, 42, "cliente se fue").Return(nil)
	repo.On("ReleaseTable", ctx, tx, 3).Return(nil)
	activity.On("AppendTx", ctx, tx, activitylog.TypeOrderCancel, mock.AnythingOfType("string"), 42).Return(nil)
	tx.On("Commit").Return(nil).Once()

	uc := newTestUseCase(repo, activity)
	order, err := uc.CancelOrder(ctx, 42, "cliente se fue")

	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, order.Status)
	repo.AssertNumberOfCalls(t, "ReleaseTable", 1)
}

func TestCancelOrder_DefaultReason(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)
	tx := newTx()
	ctx := context.Background()

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("GetOrderForUpdate", ctx, tx, 42).
		Return(&Order{ID: 42, TableID: 3, Status: StatusPreparing, Total: 24000}, nil)
	repo.On("MarkOrderCancelled", ctx, tx, 42, DefaultCancelReason).Return(nil)
	repo.On("ReleaseTable", ctx, tx, 3).Return(nil)
	activity.On("AppendTx", ctx, tx, activitylog.TypeOrderCancel, mock.AnythingOfType("string"), 42).Return(nil)
	tx.On("Commit").Return(nil).Once()

	uc := newTestUseCase(repo, activity)
	_, err := uc.CancelOrder(ctx, 42, "")

	require.NoError(t, err)
	repo.AssertCalled(t, "MarkOrderCancelled", ctx, tx, 42, DefaultCancelReason)
}

// A second cancel finds the order already cancelled and must fail without
// touching the table or the log again.
func TestCancelOrder_AlreadyCancelled(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)
	tx := newTx()
	ctx := context.Background()

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("GetOrderForUpdate", ctx, tx, 42).
		Return(&Order{ID: 42, TableID: 3, Status: StatusCancelled, Total: 24000}, nil)

	uc := newTestUseCase(repo, activity)
	_, err := uc.CancelOrder(ctx, 42, "otra vez")

	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	repo.AssertNotCalled(t, "ReleaseTable", mock.Anything, mock.Anything, mock.Anything)
	activity.AssertNotCalled(t, "AppendTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelOrder_Missing(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)
	tx := newTx()
	ctx := context.Background()

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("GetOrderForUpdate", ctx, tx, 99).Return(nil, pgx.ErrNoRows)

	uc := newTestUseCase(repo, activity)
	_, err := uc.CancelOrder(ctx, 99, "")

	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUpdateStatus_ForwardStep(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)
	tx := newTx()
	ctx := context.Background()

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("GetOrderForUpdate", ctx, tx, 42).
		Return(&Order{ID: 42, TableID: 3, Status: StatusPending}, nil)
	repo.On("UpdateOrderStatus", ctx, tx, 42, StatusPreparing).Return(nil)
	activity.On("AppendTx", ctx, tx, activitylog.TypeStatusUpdate, mock.AnythingOfType("string"), 42).Return(nil)
	tx.On("Commit").Return(nil).Once()

	uc := newTestUseCase(repo, activity)
	order, err := uc.UpdateStatus(ctx, 42, StatusPreparing)

	require.NoError(t, err)
	assert.Equal(t, StatusPreparing, order.Status)
}

func TestUpdateStatus_SkippingRejected(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)
	tx := newTx()
	ctx := context.Background()

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("GetOrderForUpdate", ctx, tx, 42).
		Return(&Order{ID: 42, TableID: 3, Status: StatusPending}, nil)

	uc := newTestUseCase(repo, activity)
	_, err := uc.UpdateStatus(ctx, 42, StatusDelivered)

	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	repo.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_TerminalRejected(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)
	tx := newTx()
	ctx := context.Background()

	repo.On("BeginTx", ctx).Return(tx, nil)
	repo.On("GetOrderForUpdate", ctx, tx, 42).
		Return(&Order{ID: 42, TableID: 3, Status: StatusPaid}, nil)

	uc := newTestUseCase(repo, activity)
	_, err := uc.UpdateStatus(ctx, 42, StatusPreparing)

	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)

	uc := newTestUseCase(repo, activity)
	_, err := uc.UpdateStatus(context.Background(), 42, "Pagado")

	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	repo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestGetDetail_NotFound(t *testing.T) {
	repo := new(MockRepository)
	activity := new(MockActivityWriter)
	ctx := context.Background()

	repo.On("GetOrder", ctx, 99).Return(nil, pgx.ErrNoRows)

	uc := newTestUseCase(repo, activity)
	_, err := uc.GetDetail(ctx, 99)

	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
