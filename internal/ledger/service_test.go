package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-kit/log"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/eaglebank/ledger/internal/ledger"
	"github.com/eaglebank/ledger/internal/repository"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newLedger(t *testing.T, opts ...ledger.Option) (ledger.Ledger, *repository.MemoryAccountRepository) {
	t.Helper()
	store := repository.NewMemoryAccountRepository()
	return ledger.New(store, log.NewNopLogger(), opts...), store
}

func mustCreate(t *testing.T, l ledger.Ledger, name, pin string) string {
	t.Helper()
	number, err := l.CreateAccount(context.Background(), name, pin)
	if err != nil {
		t.Fatalf("CreateAccount(%s): %v", name, err)
	}
	return number
}

func balance(t *testing.T, l ledger.Ledger, number string) decimal.Decimal {
	t.Helper()
	account, err := l.GetAccount(context.Background(), number)
	if err != nil {
		t.Fatalf("GetAccount(%s): %v", number, err)
	}
	return account.Balance
}

func expectCode(t *testing.T, step string, code ledger.ResponseCode, err error, want ledger.ResponseCode) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", step, err)
	}
	if code != want {
		t.Fatalf("%s: expected %s, got %s", step, want, code)
	}
}

func expectBalance(t *testing.T, l ledger.Ledger, number, want string) {
	t.Helper()
	if got := balance(t, l, number); !got.Equal(d(want)) {
		t.Fatalf("account %s: expected balance %s, got %s", number, want, got)
	}
}

func TestCreateAccount(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	a := mustCreate(t, l, "Alice", "0012")
	b := mustCreate(t, l, "Bob", "0012")
	if a == b {
		t.Fatalf("expected distinct account numbers, got %s twice", a)
	}

	account, err := l.GetAccount(ctx, a)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	want := &ledger.Account{AccountNumber: a, Name: "Alice", Pin: "0012", Balance: decimal.Zero}
	opts := cmp.Options{decimalEqual, cmpopts.IgnoreFields(ledger.Account{}, "Version", "CreatedAt", "UpdatedAt")}
	if diff := cmp.Diff(want, account, opts); diff != "" {
		t.Errorf("created account mismatch (-want +got):\n%s", diff)
	}
	if len(a) != 12 {
		t.Errorf("expected a 12-digit account number, got %q", a)
	}
}

func TestCreateAccountRegeneratesOnCollision(t *testing.T) {
	numbers := []string{"111111111111", "111111111111", "111111111111", "222222222222"}
	next := 0
	generate := func() string {
		n := numbers[next]
		next++
		return n
	}
	l, _ := newLedger(t, ledger.WithAccountNumberGenerator(generate))

	first := mustCreate(t, l, "Alice", "1")
	second := mustCreate(t, l, "Bob", "2")
	if first != "111111111111" || second != "222222222222" {
		t.Fatalf("unexpected account numbers %s, %s", first, second)
	}
	if next != 4 {
		t.Errorf("expected 4 generated numbers, got %d", next)
	}
}

func TestCreateAccountGivesUpAfterAttempts(t *testing.T) {
	l, _ := newLedger(t,
		ledger.WithAccountNumberGenerator(func() string { return "111111111111" }),
		ledger.WithCreateAttempts(3),
	)
	mustCreate(t, l, "Alice", "1")

	_, err := l.CreateAccount(context.Background(), "Bob", "2")
	if !errors.Is(err, ledger.ErrAccountNumberExhausted) {
		t.Fatalf("expected ErrAccountNumberExhausted, got %v", err)
	}
}

// Scenario: create, deposit 100.
func TestDepositScenario(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	a := mustCreate(t, l, "A", "0012")

	code, err := l.Deposit(ctx, a, d("100.0"), "0012")
	expectCode(t, "deposit 100", code, err, ledger.Success)
	expectBalance(t, l, a, "100.0")
}

// Scenario: withdraw too much, withdraw 75, deposit with wrong pin.
func TestWithdrawScenario(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	a := mustCreate(t, l, "A", "0012")
	code, err := l.Deposit(ctx, a, d("100.0"), "0012")
	expectCode(t, "deposit 100", code, err, ledger.Success)

	code, err = l.Withdraw(ctx, a, d("300.0"), "0012")
	expectCode(t, "withdraw 300", code, err, ledger.NotEnoughBalance)
	expectBalance(t, l, a, "100.0")

	code, err = l.Withdraw(ctx, a, d("75.0"), "0012")
	expectCode(t, "withdraw 75", code, err, ledger.Success)
	expectBalance(t, l, a, "25.0")

	code, err = l.Deposit(ctx, a, d("30.0"), "8765")
	expectCode(t, "deposit with wrong pin", code, err, ledger.IncorrectPin)
	expectBalance(t, l, a, "25.0")
}

// Scenario: wrong pin, successful transfer, then insufficient balance.
func TestTransferScenario(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	a := mustCreate(t, l, "A", "0012")
	b := mustCreate(t, l, "B", "3456")
	code, err := l.Deposit(ctx, a, d("3200.0"), "0012")
	expectCode(t, "deposit 3200", code, err, ledger.Success)

	code, err = l.Transfer(ctx, a, b, d("2400.0"), "3456")
	expectCode(t, "transfer with wrong pin", code, err, ledger.IncorrectPin)
	expectBalance(t, l, a, "3200.0")
	expectBalance(t, l, b, "0")

	code, err = l.Transfer(ctx, a, b, d("2400.0"), "0012")
	expectCode(t, "transfer 2400", code, err, ledger.Success)
	expectBalance(t, l, a, "800.0")
	expectBalance(t, l, b, "2400.0")

	code, err = l.Transfer(ctx, a, b, d("2400.0"), "0012")
	expectCode(t, "transfer 2400 again", code, err, ledger.NotEnoughBalance)
	expectBalance(t, l, a, "800.0")
	expectBalance(t, l, b, "2400.0")
}

// Scenario: missing source, empty amount, missing target.
func TestTransferFailureScenario(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	a := mustCreate(t, l, "A", "0012")
	code, err := l.Deposit(ctx, a, d("50"), "0012")
	expectCode(t, "deposit 50", code, err, ledger.Success)

	code, err = l.Transfer(ctx, "999999999999", a, d("10"), "0012")
	expectCode(t, "missing source", code, err, ledger.NoSourceAccount)

	code, err = l.Transfer(ctx, a, a, decimal.Zero, "0012")
	expectCode(t, "empty amount", code, err, ledger.EmptyAmount)

	code, err = l.Transfer(ctx, a, "999999999999", d("10"), "0012")
	expectCode(t, "missing target", code, err, ledger.NoTargetAccount)
	expectBalance(t, l, a, "50")
}

func TestValidationPrecedence(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	a := mustCreate(t, l, "A", "0012")
	b := mustCreate(t, l, "B", "3456")
	code, err := l.Deposit(ctx, a, d("10"), "0012")
	expectCode(t, "deposit 10", code, err, ledger.Success)

	const missing = "999999999999"
	tests := []struct {
		name string
		run  func() (ledger.ResponseCode, error)
		want ledger.ResponseCode
	}{
		{"deposit: missing account before pin", func() (ledger.ResponseCode, error) {
			return l.Deposit(ctx, missing, decimal.Zero, "bad")
		}, ledger.NoAccount},
		{"deposit: pin before amount", func() (ledger.ResponseCode, error) {
			return l.Deposit(ctx, a, d("-5"), "bad")
		}, ledger.IncorrectPin},
		{"deposit: negative amount", func() (ledger.ResponseCode, error) {
			return l.Deposit(ctx, a, d("-5"), "0012")
		}, ledger.EmptyAmount},
		{"withdraw: missing account before pin", func() (ledger.ResponseCode, error) {
			return l.Withdraw(ctx, missing, d("1"), "bad")
		}, ledger.NoAccount},
		{"withdraw: pin before amount", func() (ledger.ResponseCode, error) {
			return l.Withdraw(ctx, a, decimal.Zero, "bad")
		}, ledger.IncorrectPin},
		{"withdraw: amount before balance", func() (ledger.ResponseCode, error) {
			return l.Withdraw(ctx, a, decimal.Zero, "0012")
		}, ledger.EmptyAmount},
		{"transfer: pin is checked against the source", func() (ledger.ResponseCode, error) {
			return l.Transfer(ctx, a, b, d("1"), "3456")
		}, ledger.IncorrectPin},
		{"transfer: pin before amount", func() (ledger.ResponseCode, error) {
			return l.Transfer(ctx, a, b, decimal.Zero, "bad")
		}, ledger.IncorrectPin},
		{"transfer: balance before target", func() (ledger.ResponseCode, error) {
			return l.Transfer(ctx, a, missing, d("100"), "0012")
		}, ledger.NotEnoughBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := tt.run()
			expectCode(t, tt.name, code, err, tt.want)
		})
	}
	expectBalance(t, l, a, "10")
	expectBalance(t, l, b, "0")
}

func TestSelfTransferLeavesBalanceUnchanged(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	a := mustCreate(t, l, "A", "0012")
	code, err := l.Deposit(ctx, a, d("40"), "0012")
	expectCode(t, "deposit 40", code, err, ledger.Success)

	code, err = l.Transfer(ctx, a, a, d("30"), "0012")
	expectCode(t, "self transfer", code, err, ledger.Success)
	expectBalance(t, l, a, "40")

	code, err = l.Transfer(ctx, a, a, d("50"), "0012")
	expectCode(t, "self transfer over balance", code, err, ledger.NotEnoughBalance)
}

func TestDecimalArithmeticIsExact(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	a := mustCreate(t, l, "A", "0012")
	for i := 0; i < 10; i++ {
		code, err := l.Deposit(ctx, a, d("0.1"), "0012")
		expectCode(t, "deposit 0.1", code, err, ledger.Success)
	}
	expectBalance(t, l, a, "1")

	code, err := l.Withdraw(ctx, a, d("1"), "0012")
	expectCode(t, "withdraw everything", code, err, ledger.Success)
	expectBalance(t, l, a, "0")

	code, err = l.Deposit(ctx, a, d("0.00001"), "0012")
	expectCode(t, "deposit 0.00001", code, err, ledger.Success)
	expectBalance(t, l, a, "0.00001")
}

func TestGetAllAccountsInCreationOrder(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	var want []string
	for _, name := range []string{"Carol", "Alice", "Bob"} {
		mustCreate(t, l, name, "0000")
		want = append(want, name)
	}

	accounts, err := l.GetAllAccounts(ctx)
	if err != nil {
		t.Fatalf("GetAllAccounts: %v", err)
	}
	var got []string
	for _, account := range accounts {
		got = append(got, account.Name)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("account order mismatch (-want +got):\n%s", diff)
	}

	if _, err := l.GetAccount(ctx, "999999999999"); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

// failingStore wraps a real store and fails the chosen operations.
type failingStore struct {
	ledger.AccountStore
	failFind bool
	failSave bool
}

var errStoreDown = errors.New("store down")

func (s *failingStore) FindByAccountNumber(ctx context.Context, number string) (*ledger.Account, error) {
	if s.failFind {
		return nil, errStoreDown
	}
	return s.AccountStore.FindByAccountNumber(ctx, number)
}

func (s *failingStore) Save(ctx context.Context, account *ledger.Account) error {
	if s.failSave {
		return errStoreDown
	}
	return s.AccountStore.Save(ctx, account)
}

func (s *failingStore) SaveAll(ctx context.Context, accounts ...*ledger.Account) error {
	if s.failSave {
		return errStoreDown
	}
	return s.AccountStore.SaveAll(ctx, accounts...)
}

func TestStoreFailuresPropagate(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{AccountStore: repository.NewMemoryAccountRepository()}
	l := ledger.New(store, log.NewNopLogger())
	a := mustCreate(t, l, "A", "0012")
	b := mustCreate(t, l, "B", "3456")
	code, err := l.Deposit(ctx, a, d("10"), "0012")
	expectCode(t, "deposit 10", code, err, ledger.Success)

	ops := map[string]func() (ledger.ResponseCode, error){
		"deposit":  func() (ledger.ResponseCode, error) { return l.Deposit(ctx, a, d("1"), "0012") },
		"withdraw": func() (ledger.ResponseCode, error) { return l.Withdraw(ctx, a, d("1"), "0012") },
		"transfer": func() (ledger.ResponseCode, error) { return l.Transfer(ctx, a, b, d("1"), "0012") },
	}
	for _, mode := range []string{"find", "save"} {
		store.failFind, store.failSave = mode == "find", mode == "save"
		for name, op := range ops {
			t.Run(fmt.Sprintf("%s fails on %s", name, mode), func(t *testing.T) {
				code, err := op()
				if !errors.Is(err, errStoreDown) {
					t.Fatalf("expected store error, got %v", err)
				}
				if code == ledger.Success {
					t.Fatal("store failure reported SUCCESS")
				}
			})
		}
	}

	store.failFind, store.failSave = false, false
	expectBalance(t, l, a, "10")
	expectBalance(t, l, b, "0")
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	a := mustCreate(t, l, "A", "0012")
	code, err := l.Deposit(ctx, a, d("100"), "0012")
	expectCode(t, "deposit 100", code, err, ledger.Success)

	const workers = 50
	codes := make([]ledger.ResponseCode, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			code, err := l.Withdraw(ctx, a, d("10"), "0012")
			codes[i] = code
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}

	var succeeded int
	for _, code := range codes {
		switch code {
		case ledger.Success:
			succeeded++
		case ledger.NotEnoughBalance:
		default:
			t.Fatalf("unexpected code %s", code)
		}
	}
	if succeeded != 10 {
		t.Errorf("expected exactly 10 successful withdrawals, got %d", succeeded)
	}
	expectBalance(t, l, a, "0")
}

func TestConcurrentOppositeTransfersConserveTotal(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	a := mustCreate(t, l, "A", "1111")
	b := mustCreate(t, l, "B", "2222")
	expectCode(t, "fund A", mustCode(l.Deposit(ctx, a, d("1000"), "1111")), nil, ledger.Success)
	expectCode(t, "fund B", mustCode(l.Deposit(ctx, b, d("1000"), "2222")), nil, ledger.Success)

	var g errgroup.Group
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			_, err := l.Transfer(ctx, a, b, d("7"), "1111")
			return err
		})
		g.Go(func() error {
			_, err := l.Transfer(ctx, b, a, d("3"), "2222")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	total := balance(t, l, a).Add(balance(t, l, b))
	if !total.Equal(d("2000")) {
		t.Errorf("expected total 2000, got %s", total)
	}
	expectBalance(t, l, a, "600")
	expectBalance(t, l, b, "1400")
}

func mustCode(code ledger.ResponseCode, err error) ledger.ResponseCode {
	if err != nil {
		panic(err)
	}
	return code
}
