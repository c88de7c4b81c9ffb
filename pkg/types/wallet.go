package types

type WalletTransactionType string

const (
	WalletTransactionDebit  WalletTransactionType = "debit"
	WalletTransactionCredit WalletTransactionType = "credit"
	WalletTransactionBonus  WalletTransactionType = "bonus"
)

type WalletTransactionStatus string

const (
	WalletTransactionCompleted WalletTransactionStatus = "completed"
	WalletTransactionPending   WalletTransactionStatus = "pending"
	WalletTransactionFailed    WalletTransactionStatus = "failed"
)

type PaymentMethodType string

const (
	PaymentMethodPayPal PaymentMethodType = "paypal"
	PaymentMethodCard   PaymentMethodType = "card"
)

func ValidPaymentMethodType(t PaymentMethodType) bool {
	return t == PaymentMethodPayPal || t == PaymentMethodCard
}
