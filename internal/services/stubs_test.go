package service

import (
	"context"
	"sync"
	"time"

	"github.com/tomiwa-dev/creatorpay/internal/gateway"
	"github.com/tomiwa-dev/creatorpay/internal/infrastructure/redis"
	"github.com/tomiwa-dev/creatorpay/internal/models"
)

// Hand-rolled stubs: function fields configure behavior per test case.

type stubTransactionRepo struct {
	createFn   func(ctx context.Context, tx *models.Transaction) (int64, error)
	getFn      func(ctx context.Context, reference string) (*models.Transaction, error)
	finalizeFn func(ctx context.Context, reference string, status models.TransactionStatus) (*models.Transaction, error)
}

func (s *stubTransactionRepo) Create(ctx context.Context, tx *models.Transaction) (int64, error) {
	return s.createFn(ctx, tx)
}

func (s *stubTransactionRepo) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return s.getFn(ctx, reference)
}

func (s *stubTransactionRepo) FinalizeByReference(ctx context.Context, reference string, status models.TransactionStatus) (*models.Transaction, error) {
	return s.finalizeFn(ctx, reference, status)
}

type creditCall struct {
	walletID  int64
	amount    int64
	reference string
}

type stubWalletRepo struct {
	mu          sync.Mutex
	credits     []creditCall
	debits      []creditCall
	getByIDFn   func(ctx context.Context, id int64) (*models.Wallet, error)
	getByUserFn func(ctx context.Context, userID string) (*models.Wallet, error)
	creditFn    func(ctx context.Context, walletID, amount int64, reference string) (int64, error)
	debitFn     func(ctx context.Context, walletID, amount int64, reference string) (int64, error)
	entriesFn   func(ctx context.Context, walletID int64) ([]models.WalletEntry, error)
}

func (s *stubWalletRepo) GetByID(ctx context.Context, id int64) (*models.Wallet, error) {
	return s.getByIDFn(ctx, id)
}

func (s *stubWalletRepo) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	return s.getByUserFn(ctx, userID)
}

func (s *stubWalletRepo) Credit(ctx context.Context, walletID, amount int64, reference string) (int64, error) {
	s.mu.Lock()
	s.credits = append(s.credits, creditCall{walletID, amount, reference})
	s.mu.Unlock()
	return s.creditFn(ctx, walletID, amount, reference)
}

func (s *stubWalletRepo) Debit(ctx context.Context, walletID, amount int64, reference string) (int64, error) {
	s.mu.Lock()
	s.debits = append(s.debits, creditCall{walletID, amount, reference})
	s.mu.Unlock()
	return s.debitFn(ctx, walletID, amount, reference)
}

func (s *stubWalletRepo) Entries(ctx context.Context, walletID int64) ([]models.WalletEntry, error) {
	return s.entriesFn(ctx, walletID)
}

type stubRequestRepo struct {
	getFn      func(ctx context.Context, id int64) (*models.Request, error)
	markPaidFn func(ctx context.Context, id int64) error
	paidIDs    []int64
}

func (s *stubRequestRepo) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	return s.getFn(ctx, id)
}

func (s *stubRequestRepo) MarkPaid(ctx context.Context, id int64) error {
	s.paidIDs = append(s.paidIDs, id)
	if s.markPaidFn != nil {
		return s.markPaidFn(ctx, id)
	}
	return nil
}

type stubCardRepo struct {
	storeFn func(ctx context.Context, card *models.CardAuthorization) error
	getFn   func(ctx context.Context, email string) (*models.CardAuthorization, error)
	stored  []*models.CardAuthorization
}

func (s *stubCardRepo) StoreIfAbsent(ctx context.Context, card *models.CardAuthorization) error {
	s.stored = append(s.stored, card)
	return s.storeFn(ctx, card)
}

func (s *stubCardRepo) GetByEmail(ctx context.Context, email string) (*models.CardAuthorization, error) {
	return s.getFn(ctx, email)
}

type stubTransferRepo struct {
	createFn   func(ctx context.Context, transfer *models.Transfer) (int64, error)
	getByIDFn  func(ctx context.Context, id int64) (*models.Transfer, error)
	getByRefFn func(ctx context.Context, reference string) (*models.Transfer, error)
	setRefFn   func(ctx context.Context, id int64, reference string) error
	finalizeFn func(ctx context.Context, id int64, status models.TransactionStatus) error
	finalized  map[int64]models.TransactionStatus
}

func (s *stubTransferRepo) Create(ctx context.Context, transfer *models.Transfer) (int64, error) {
	return s.createFn(ctx, transfer)
}

func (s *stubTransferRepo) GetByID(ctx context.Context, id int64) (*models.Transfer, error) {
	return s.getByIDFn(ctx, id)
}

func (s *stubTransferRepo) GetByReference(ctx context.Context, reference string) (*models.Transfer, error) {
	return s.getByRefFn(ctx, reference)
}

func (s *stubTransferRepo) SetReference(ctx context.Context, id int64, reference string) error {
	return s.setRefFn(ctx, id, reference)
}

func (s *stubTransferRepo) FinalizeByID(ctx context.Context, id int64, status models.TransactionStatus) error {
	if s.finalized == nil {
		s.finalized = map[int64]models.TransactionStatus{}
	}
	s.finalized[id] = status
	if s.finalizeFn != nil {
		return s.finalizeFn(ctx, id, status)
	}
	return nil
}

type stubGateway struct {
	initializeFn func(ctx context.Context, amount int64, email, reference string, metadata map[string]string) (string, error)
	verifyFn     func(ctx context.Context, reference string) (*gateway.ProviderStatus, error)
	transferFn   func(ctx context.Context, recipientCode string, amount int64, currency string) (string, error)
}

func (s *stubGateway) InitializeTransaction(ctx context.Context, amount int64, email, reference string, metadata map[string]string) (string, error) {
	return s.initializeFn(ctx, amount, email, reference, metadata)
}

func (s *stubGateway) VerifyTransaction(ctx context.Context, reference string) (*gateway.ProviderStatus, error) {
	return s.verifyFn(ctx, reference)
}

func (s *stubGateway) CreateTransfer(ctx context.Context, recipientCode string, amount int64, currency string) (string, error) {
	return s.transferFn(ctx, recipientCode, amount, currency)
}

// fakeRedis is a map-backed RedisClient.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", redis.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := value.(string); ok {
		f.data[key] = s
	} else {
		f.data[key] = "set"
	}
	return nil
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	if s, ok := value.(string); ok {
		f.data[key] = s
	} else {
		f.data[key] = "set"
	}
	return true, nil
}

func (f *fakeRedis) Del(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeRedis) Close() error { return nil }

type sentEvent struct {
	topic string
	key   string
	value []byte
}

type fakeProducer struct {
	mu     sync.Mutex
	events []sentEvent
}

func (f *fakeProducer) Send(ctx context.Context, topic string, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{topic, key, value})
	return nil
}

func (f *fakeProducer) Close() error { return nil }
