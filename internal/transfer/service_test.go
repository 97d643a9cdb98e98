package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"perfectpay-backend/internal/auth"
	"perfectpay-backend/internal/config"
	"perfectpay-backend/internal/ledger"
	"perfectpay-backend/internal/payments"
	"perfectpay-backend/internal/transactions"
	"perfectpay-backend/internal/user"
)

// fakeBooks keeps balances in memory and enforces the same conditional
// decrease the database does, so concurrent callers contend realistically.
type fakeBooks struct {
	mu       sync.Mutex
	balances map[int64]decimal.Decimal // wallet id -> balance
	records  []transactions.Record
	nextID   int64
}

func newFakeBooks(balances map[int64]decimal.Decimal) *fakeBooks {
	return &fakeBooks{balances: balances}
}

func (f *fakeBooks) TransferFunds(_ context.Context, mv ledger.Movement) (*ledger.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.balances[mv.DebitWalletID].LessThan(mv.DebitAmount) {
		return nil, ledger.ErrInsufficientFunds
	}
	f.balances[mv.DebitWalletID] = f.balances[mv.DebitWalletID].Sub(mv.DebitAmount)
	f.balances[mv.CreditWalletID] = f.balances[mv.CreditWalletID].Add(mv.CreditAmount)

	debit := f.record(transactions.Record{
		UserID: mv.DebitUserID, RecipientID: &mv.CreditUserID,
		Amount: mv.DebitAmount, Type: transactions.TypeDebit,
		Status: transactions.StatusCompleted, Currency: mv.DebitCurrency,
	})
	credit := f.record(transactions.Record{
		UserID: mv.CreditUserID, RecipientID: &mv.CreditUserID,
		Amount: mv.CreditAmount, Type: transactions.TypeCredit,
		Status: transactions.StatusCompleted, Currency: mv.CreditCurrency,
	})
	return &ledger.TransferResult{
		Debit:         debit,
		Credit:        credit,
		DebitBalance:  f.balances[mv.DebitWalletID],
		CreditBalance: f.balances[mv.CreditWalletID],
	}, nil
}

func (f *fakeBooks) CreditWallet(_ context.Context, cr ledger.CreditEntry) (*ledger.CreditResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.balances[cr.WalletID] = f.balances[cr.WalletID].Add(cr.Amount)
	credit := f.record(transactions.Record{
		UserID: cr.UserID, Amount: cr.Amount,
		Type: transactions.TypeCredit, Status: transactions.StatusCompleted,
		Currency: cr.Currency,
	})
	return &ledger.CreditResult{Credit: credit, Balance: f.balances[cr.WalletID]}, nil
}

func (f *fakeBooks) record(rec transactions.Record) *transactions.Transaction {
	f.records = append(f.records, rec)
	f.nextID++
	return &transactions.Transaction{
		ID: f.nextID, UserID: rec.UserID, RecipientID: rec.RecipientID,
		Amount: rec.Amount, Fees: rec.Fees, Type: rec.Type,
		Status: rec.Status, Currency: rec.Currency,
	}
}

func (f *fakeBooks) balance(walletID int64) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[walletID]
}

type fakeWallets struct {
	books   *fakeBooks
	wallets map[int64]*ledger.Wallet // user id -> wallet
}

func (f *fakeWallets) ByUserID(_ context.Context, userID int64) (*ledger.Wallet, error) {
	w, ok := f.wallets[userID]
	if !ok {
		return nil, ledger.ErrWalletNotFound
	}
	snapshot := *w
	snapshot.Balance = f.books.balance(w.ID)
	return &snapshot, nil
}

type fakeUsers struct {
	byID      map[int64]*user.User
	byPhone   map[string]*user.User
	merchants map[string]*user.Merchant
}

func (f *fakeUsers) ByID(_ context.Context, id int64) (*user.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (f *fakeUsers) ByPhone(_ context.Context, phone string) (*user.User, error) {
	if u, ok := f.byPhone[phone]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (f *fakeUsers) MerchantByPhone(_ context.Context, phone string) (*user.Merchant, error) {
	if m, ok := f.merchants[phone]; ok {
		return m, nil
	}
	return nil, user.ErrMerchantNotFound
}

// fakeConverter applies a single fixed rate to every cross-currency pair.
type fakeConverter struct {
	rate decimal.Decimal
}

func (f *fakeConverter) Convert(_ context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	return amount.Mul(f.rate).Round(2), nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeNotifier) SendSMS(phone, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, phone+": "+message)
	return f.err
}

type fakeCharger struct {
	calls int
	err   error
}

func (f *fakeCharger) Charge(_ context.Context, _ payments.ChargeRequest) error {
	f.calls++
	return f.err
}

type fakeIntents struct {
	calls []payments.IntentRequest
}

func (f *fakeIntents) CreateIntent(_ context.Context, req payments.IntentRequest) (*payments.Intent, error) {
	f.calls = append(f.calls, req)
	return &payments.Intent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

type fixture struct {
	svc     *Service
	books   *fakeBooks
	notify  *fakeNotifier
	charger *fakeCharger
	intents *fakeIntents
}

const testPIN = "12345"

var testPINHash string

func init() {
	var err error
	testPINHash, err = auth.HashSecret(testPIN)
	if err != nil {
		panic(err)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		TransferMinimums: map[string]decimal.Decimal{
			"USD": decimal.NewFromInt(1),
			"EUR": decimal.NewFromInt(1),
			"XAF": decimal.NewFromInt(50),
		},
		CardMinimums: map[string]decimal.Decimal{
			"USD": decimal.NewFromInt(5),
			"EUR": decimal.NewFromInt(5),
			"XAF": decimal.NewFromInt(500),
		},
		SupportedOperators:  []string{"ORANGE", "MTN"},
		SupportedCurrencies: []string{"USD", "EUR", "XAF"},
	}
}

// newFixture wires two users: 1 (+237..., wallet 10) and 2 (+33..., wallet 20),
// with the given currencies and starting balances.
func newFixture(t *testing.T, ccy1, ccy2 string, bal1, bal2 int64, rate decimal.Decimal) *fixture {
	t.Helper()

	books := newFakeBooks(map[int64]decimal.Decimal{
		10: decimal.NewFromInt(bal1),
		20: decimal.NewFromInt(bal2),
	})
	wallets := &fakeWallets{
		books: books,
		wallets: map[int64]*ledger.Wallet{
			1: {ID: 10, UserID: 1, Currency: ccy1},
			2: {ID: 20, UserID: 2, Currency: ccy2},
		},
	}

	merchantCodeHash, err := auth.HashSecret("654321")
	if err != nil {
		t.Fatal(err)
	}
	u1 := &user.User{ID: 1, PhoneNumber: "+237650000001", PIN: testPINHash}
	u2 := &user.User{ID: 2, PhoneNumber: "+237650000002", PIN: testPINHash}
	users := &fakeUsers{
		byID:    map[int64]*user.User{1: u1, 2: u2},
		byPhone: map[string]*user.User{u1.PhoneNumber: u1, u2.PhoneNumber: u2},
		merchants: map[string]*user.Merchant{
			u2.PhoneNumber: {ID: 5, OwnerID: 2, BusinessName: "Corner Shop",
				PhoneNumber: u2.PhoneNumber, MerchantCode: merchantCodeHash},
		},
	}

	notify := &fakeNotifier{}
	charger := &fakeCharger{}
	intents := &fakeIntents{}
	svc := NewService(testConfig(), books, wallets, users,
		&fakeConverter{rate: rate}, notify, charger, intents, zap.NewNop())
	return &fixture{svc: svc, books: books, notify: notify, charger: charger, intents: intents}
}

func TestTransferSameCurrency(t *testing.T) {
	fx := newFixture(t, "XAF", "XAF", 1000, 200, decimal.NewFromInt(1))

	txn, err := fx.svc.Transfer(context.Background(), 1, "+237650000002", decimal.NewFromInt(100), testPIN)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if txn.Type != transactions.TypeDebit || txn.Status != transactions.StatusCompleted {
		t.Errorf("debit row = %s/%s, want debit/completed", txn.Type, txn.Status)
	}
	if got := fx.books.balance(10); !got.Equal(decimal.NewFromInt(900)) {
		t.Errorf("sender balance = %s, want 900", got)
	}
	if got := fx.books.balance(20); !got.Equal(decimal.NewFromInt(300)) {
		t.Errorf("recipient balance = %s, want 300", got)
	}
	if len(fx.books.records) != 2 {
		t.Fatalf("recorded %d rows, want 2", len(fx.books.records))
	}
	if fx.books.records[0].Type != transactions.TypeDebit || fx.books.records[1].Type != transactions.TypeCredit {
		t.Errorf("row types = %s,%s, want debit,credit",
			fx.books.records[0].Type, fx.books.records[1].Type)
	}
	if len(fx.notify.sent) != 2 {
		t.Errorf("sent %d sms, want 2", len(fx.notify.sent))
	}
}

func TestTransferCrossCurrency(t *testing.T) {
	// EUR sender, XAF recipient, rate 600: 10 EUR debits 10, credits 6000 XAF.
	fx := newFixture(t, "EUR", "XAF", 100, 0, decimal.NewFromInt(600))

	if _, err := fx.svc.Transfer(context.Background(), 1, "+237650000002", decimal.NewFromInt(10), testPIN); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := fx.books.balance(10); !got.Equal(decimal.NewFromInt(90)) {
		t.Errorf("sender balance = %s, want 90", got)
	}
	if got := fx.books.balance(20); !got.Equal(decimal.NewFromInt(6000)) {
		t.Errorf("recipient balance = %s, want 6000", got)
	}
	if ccy := fx.books.records[1].Currency; ccy != "XAF" {
		t.Errorf("credit currency = %s, want XAF", ccy)
	}
}

func TestTransferRejectsSelf(t *testing.T) {
	fx := newFixture(t, "XAF", "XAF", 1000, 0, decimal.NewFromInt(1))

	_, err := fx.svc.Transfer(context.Background(), 1, "+237650000001", decimal.NewFromInt(100), testPIN)
	if !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("err = %v, want ErrSelfTransfer", err)
	}

	// Rejected before the PIN is even checked, so a wrong PIN surfaces the
	// same error.
	_, err = fx.svc.Transfer(context.Background(), 1, "+237650000001", decimal.NewFromInt(100), "00000")
	if !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("err with wrong pin = %v, want ErrSelfTransfer", err)
	}

	if got := fx.books.balance(10); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance changed to %s on rejected transfer", got)
	}
}

func TestTransferBelowMinimum(t *testing.T) {
	fx := newFixture(t, "XAF", "XAF", 1000, 0, decimal.NewFromInt(1))

	_, err := fx.svc.Transfer(context.Background(), 1, "+237650000002", decimal.NewFromInt(49), testPIN)
	if !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("err = %v, want ErrBelowMinimum", err)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	fx := newFixture(t, "XAF", "XAF", 60, 0, decimal.NewFromInt(1))

	_, err := fx.svc.Transfer(context.Background(), 1, "+237650000002", decimal.NewFromInt(100), testPIN)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if got := fx.books.balance(10); !got.Equal(decimal.NewFromInt(60)) {
		t.Errorf("balance = %s, want 60", got)
	}
}

func TestTransferWrongPIN(t *testing.T) {
	fx := newFixture(t, "XAF", "XAF", 1000, 0, decimal.NewFromInt(1))

	_, err := fx.svc.Transfer(context.Background(), 1, "+237650000002", decimal.NewFromInt(100), "00000")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if len(fx.books.records) != 0 {
		t.Errorf("recorded %d rows on rejected pin", len(fx.books.records))
	}
}

func TestTransferUnknownRecipient(t *testing.T) {
	fx := newFixture(t, "XAF", "XAF", 1000, 0, decimal.NewFromInt(1))

	_, err := fx.svc.Transfer(context.Background(), 1, "+237699999999", decimal.NewFromInt(100), testPIN)
	if !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("err = %v, want ErrRecipientNotFound", err)
	}
}

func TestTransferNotifyFailureNonFatal(t *testing.T) {
	fx := newFixture(t, "XAF", "XAF", 1000, 0, decimal.NewFromInt(1))
	fx.notify.err = errors.New("queue down")

	if _, err := fx.svc.Transfer(context.Background(), 1, "+237650000002", decimal.NewFromInt(100), testPIN); err != nil {
		t.Fatalf("Transfer failed on notify error: %v", err)
	}
	if got := fx.books.balance(10); !got.Equal(decimal.NewFromInt(900)) {
		t.Errorf("sender balance = %s, want 900", got)
	}
}

func TestConcurrentTransfersSpendOnce(t *testing.T) {
	// Two transfers of 80 race on a balance of 100: exactly one may commit.
	fx := newFixture(t, "XAF", "XAF", 100, 0, decimal.NewFromInt(1))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.svc.Transfer(context.Background(), 1, "+237650000002", decimal.NewFromInt(80), testPIN)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ledger.ErrInsufficientFunds) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d transfers succeeded, want exactly 1", succeeded)
	}
	if got := fx.books.balance(10); !got.Equal(decimal.NewFromInt(20)) {
		t.Errorf("sender balance = %s, want 20", got)
	}
}

func TestWithdrawToMerchant(t *testing.T) {
	fx := newFixture(t, "XAF", "XAF", 1000, 0, decimal.NewFromInt(1))

	txn, err := fx.svc.Withdraw(context.Background(), 1, "+237650000002", "654321", decimal.NewFromInt(200), testPIN)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if txn.Type != transactions.TypeDebit {
		t.Errorf("row type = %s, want debit", txn.Type)
	}
	if got := fx.books.balance(20); !got.Equal(decimal.NewFromInt(200)) {
		t.Errorf("merchant balance = %s, want 200", got)
	}
}

func TestWithdrawWrongMerchantCode(t *testing.T) {
	fx := newFixture(t, "XAF", "XAF", 1000, 0, decimal.NewFromInt(1))

	_, err := fx.svc.Withdraw(context.Background(), 1, "+237650000002", "000000", decimal.NewFromInt(200), testPIN)
	if !errors.Is(err, user.ErrMerchantNotFound) {
		t.Fatalf("err = %v, want ErrMerchantNotFound", err)
	}
	if got := fx.books.balance(10); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance changed to %s on rejected code", got)
	}
}

func TestRechargeMobileMoney(t *testing.T) {
	fx := newFixture(t, "XAF", "XAF", 100, 0, decimal.NewFromInt(1))

	txn, err := fx.svc.RechargeMobileMoney(context.Background(), 1, decimal.NewFromInt(500), "ORANGE", testPIN)
	if err != nil {
		t.Fatalf("RechargeMobileMoney: %v", err)
	}
	if fx.charger.calls != 1 {
		t.Errorf("charger called %d times, want 1", fx.charger.calls)
	}
	if txn.Type != transactions.TypeCredit || txn.Status != transactions.StatusCompleted {
		t.Errorf("row = %s/%s, want credit/completed", txn.Type, txn.Status)
	}
	if got := fx.books.balance(10); !got.Equal(decimal.NewFromInt(600)) {
		t.Errorf("balance = %s, want 600", got)
	}
}

func TestRechargeUnsupportedOperator(t *testing.T) {
	fx := newFixture(t, "XAF", "XAF", 100, 0, decimal.NewFromInt(1))

	_, err := fx.svc.RechargeMobileMoney(context.Background(), 1, decimal.NewFromInt(500), "CAMTEL", testPIN)
	if !errors.Is(err, ErrUnsupportedOperator) {
		t.Fatalf("err = %v, want ErrUnsupportedOperator", err)
	}
	if fx.charger.calls != 0 {
		t.Errorf("charger called %d times for unsupported operator", fx.charger.calls)
	}
}

func TestRechargeChargeDeclined(t *testing.T) {
	fx := newFixture(t, "XAF", "XAF", 100, 0, decimal.NewFromInt(1))
	fx.charger.err = payments.ErrChargeDeclined

	_, err := fx.svc.RechargeMobileMoney(context.Background(), 1, decimal.NewFromInt(500), "MTN", testPIN)
	if !errors.Is(err, payments.ErrChargeDeclined) {
		t.Fatalf("err = %v, want ErrChargeDeclined", err)
	}
	if got := fx.books.balance(10); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance = %s after declined charge, want 100", got)
	}
	if len(fx.books.records) != 0 {
		t.Errorf("recorded %d rows after declined charge", len(fx.books.records))
	}
}

func TestRechargeCardNoSyncMutation(t *testing.T) {
	fx := newFixture(t, "USD", "USD", 100, 0, decimal.NewFromInt(1))

	intent, err := fx.svc.RechargeCard(context.Background(), 1, decimal.NewFromInt(20), testPIN)
	if err != nil {
		t.Fatalf("RechargeCard: %v", err)
	}
	if intent.ClientSecret == "" {
		t.Error("empty client secret")
	}
	if got := fx.books.balance(10); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance = %s, card recharge must not credit synchronously", got)
	}
	if len(fx.intents.calls) != 1 {
		t.Fatalf("intent created %d times, want 1", len(fx.intents.calls))
	}
	if req := fx.intents.calls[0]; req.UserID != 1 || req.Currency != "USD" {
		t.Errorf("intent request = %+v", req)
	}
}

func TestRechargeCardBelowMinimum(t *testing.T) {
	fx := newFixture(t, "XAF", "XAF", 100, 0, decimal.NewFromInt(1))

	_, err := fx.svc.RechargeCard(context.Background(), 1, decimal.NewFromInt(400), testPIN)
	if !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("err = %v, want ErrBelowMinimum", err)
	}
	if len(fx.intents.calls) != 0 {
		t.Errorf("intent created for below-minimum amount")
	}
}
