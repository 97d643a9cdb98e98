package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"perfectpay-backend/internal/auth"
	"perfectpay-backend/internal/config"
	"perfectpay-backend/internal/ledger"
	"perfectpay-backend/internal/payments"
	"perfectpay-backend/internal/transactions"
	"perfectpay-backend/internal/user"
)

// Ledger commits money movements atomically.
type Ledger interface {
	TransferFunds(ctx context.Context, mv ledger.Movement) (*ledger.TransferResult, error)
	CreditWallet(ctx context.Context, cr ledger.CreditEntry) (*ledger.CreditResult, error)
}

// Wallets resolves a user's wallet for balance and currency.
type Wallets interface {
	ByUserID(ctx context.Context, userID int64) (*ledger.Wallet, error)
}

// Users resolves account identities.
type Users interface {
	ByID(ctx context.Context, id int64) (*user.User, error)
	ByPhone(ctx context.Context, phone string) (*user.User, error)
	MerchantByPhone(ctx context.Context, phone string) (*user.Merchant, error)
}

// Converter re-expresses an amount in the target currency.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Notifier queues a text message. Failures are logged, never returned to
// the money path.
type Notifier interface {
	SendSMS(phone, message string) error
}

// Service orchestrates transfers, withdrawals, and recharges. Everything it
// depends on sits behind an interface.
type Service struct {
	cfg     *config.Config
	books   Ledger
	wallets Wallets
	users   Users
	convert Converter
	notify  Notifier
	charger payments.Charger
	intents payments.IntentCreator
	log     *zap.Logger
}

func NewService(cfg *config.Config, books Ledger, wallets Wallets, users Users,
	convert Converter, notify Notifier, charger payments.Charger,
	intents payments.IntentCreator, log *zap.Logger) *Service {
	return &Service{
		cfg:     cfg,
		books:   books,
		wallets: wallets,
		users:   users,
		convert: convert,
		notify:  notify,
		charger: charger,
		intents: intents,
		log:     log,
	}
}

// Transfer moves amount from the sender's wallet to the account registered
// under recipientPhone. The amount is denominated in the sender's wallet
// currency; the credit leg is converted when the recipient holds a different
// currency.
func (s *Service) Transfer(ctx context.Context, senderID int64, recipientPhone string, amount decimal.Decimal, pin string) (*transactions.Transaction, error) {
	sender, err := s.users.ByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	// Self-transfer is rejected before anything else, even a bad PIN.
	if sender.PhoneNumber == recipientPhone {
		return nil, ErrSelfTransfer
	}
	if !auth.VerifySecret(pin, sender.PIN) {
		return nil, ErrInvalidCredentials
	}

	recipient, err := s.users.ByPhone(ctx, recipientPhone)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}
	if recipient.ID == sender.ID {
		return nil, ErrSelfTransfer
	}

	return s.moveFunds(ctx, sender, recipient, amount)
}

// Withdraw pays out the user's funds to a merchant. The merchant is looked up
// by phone and must present the correct code; the credited wallet belongs to
// the merchant's owner account.
func (s *Service) Withdraw(ctx context.Context, userID int64, merchantPhone, merchantCode string, amount decimal.Decimal, pin string) (*transactions.Transaction, error) {
	sender, err := s.verifyPIN(ctx, userID, pin)
	if err != nil {
		return nil, err
	}

	merchant, err := s.users.MerchantByPhone(ctx, merchantPhone)
	if err != nil {
		return nil, err
	}
	if !auth.VerifySecret(merchantCode, merchant.MerchantCode) {
		return nil, user.ErrMerchantNotFound
	}
	if merchant.OwnerID == sender.ID {
		return nil, ErrSelfTransfer
	}

	owner, err := s.users.ByID(ctx, merchant.OwnerID)
	if err != nil {
		return nil, err
	}
	return s.moveFunds(ctx, sender, owner, amount)
}

// moveFunds is the shared debit/credit path behind Transfer and Withdraw.
func (s *Service) moveFunds(ctx context.Context, sender, recipient *user.User, amount decimal.Decimal) (*transactions.Transaction, error) {
	srcWallet, err := s.wallets.ByUserID(ctx, sender.ID)
	if err != nil {
		return nil, err
	}
	dstWallet, err := s.wallets.ByUserID(ctx, recipient.ID)
	if err != nil {
		return nil, err
	}

	if amount.LessThan(s.cfg.TransferMinimum(srcWallet.Currency)) {
		return nil, ErrBelowMinimum
	}
	if srcWallet.Balance.LessThan(amount) {
		return nil, ledger.ErrInsufficientFunds
	}

	creditAmount, err := s.convert.Convert(ctx, amount, srcWallet.Currency, dstWallet.Currency)
	if err != nil {
		return nil, err
	}

	result, err := s.books.TransferFunds(ctx, ledger.Movement{
		DebitWalletID:  srcWallet.ID,
		CreditWalletID: dstWallet.ID,
		DebitUserID:    sender.ID,
		CreditUserID:   recipient.ID,
		DebitAmount:    amount,
		CreditAmount:   creditAmount,
		DebitCurrency:  srcWallet.Currency,
		CreditCurrency: dstWallet.Currency,
		Fees:           decimal.Zero,
	})
	if err != nil {
		return nil, err
	}

	s.sendSMS(sender.PhoneNumber, fmt.Sprintf(
		"You sent %s %s to %s. New balance: %s %s.",
		amount.StringFixed(2), srcWallet.Currency, recipient.PhoneNumber,
		result.DebitBalance.StringFixed(2), srcWallet.Currency))
	s.sendSMS(recipient.PhoneNumber, fmt.Sprintf(
		"You received %s %s from %s. New balance: %s %s.",
		creditAmount.StringFixed(2), dstWallet.Currency, sender.PhoneNumber,
		result.CreditBalance.StringFixed(2), dstWallet.Currency))

	return result.Debit, nil
}

// RechargeMobileMoney charges the user's operator account, then credits the
// wallet only after the operator confirms. A declined or timed-out charge
// leaves the wallet untouched.
func (s *Service) RechargeMobileMoney(ctx context.Context, userID int64, amount decimal.Decimal, operator, pin string) (*transactions.Transaction, error) {
	u, err := s.verifyPIN(ctx, userID, pin)
	if err != nil {
		return nil, err
	}
	if !s.cfg.OperatorSupported(operator) {
		return nil, ErrUnsupportedOperator
	}

	wallet, err := s.wallets.ByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.charger.Charge(ctx, payments.ChargeRequest{
		Phone:    u.PhoneNumber,
		Operator: operator,
		Amount:   amount,
		Currency: wallet.Currency,
	}); err != nil {
		return nil, err
	}

	result, err := s.books.CreditWallet(ctx, ledger.CreditEntry{
		WalletID: wallet.ID,
		UserID:   userID,
		Amount:   amount,
		Currency: wallet.Currency,
	})
	if err != nil {
		return nil, err
	}

	s.sendSMS(u.PhoneNumber, fmt.Sprintf(
		"Your wallet was recharged with %s %s. New balance: %s %s.",
		amount.StringFixed(2), wallet.Currency,
		result.Balance.StringFixed(2), wallet.Currency))

	return result.Credit, nil
}

// RechargeCard starts a card payment and returns the gateway client secret.
// The wallet is credited later, when the gateway confirms through the webhook.
func (s *Service) RechargeCard(ctx context.Context, userID int64, amount decimal.Decimal, pin string) (*payments.Intent, error) {
	_, err := s.verifyPIN(ctx, userID, pin)
	if err != nil {
		return nil, err
	}

	wallet, err := s.wallets.ByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(s.cfg.CardMinimum(wallet.Currency)) {
		return nil, ErrBelowMinimum
	}

	return s.intents.CreateIntent(ctx, payments.IntentRequest{
		UserID:   userID,
		Amount:   amount,
		Currency: wallet.Currency,
	})
}

func (s *Service) verifyPIN(ctx context.Context, userID int64, pin string) (*user.User, error) {
	u, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !auth.VerifySecret(pin, u.PIN) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) sendSMS(phone, message string) {
	if err := s.notify.SendSMS(phone, message); err != nil {
		s.log.Warn("sms enqueue failed", zap.String("phone", phone), zap.Error(err))
	}
}
