package types

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleAgent  UserRole = "agent"
	UserRoleClient UserRole = "client"
)

type ClientStatus string

const (
	ClientStatusPending   ClientStatus = "pending"
	ClientStatusActive    ClientStatus = "active"
	ClientStatusPaused    ClientStatus = "paused"
	ClientStatusCancelled ClientStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusOverdue PaymentStatus = "overdue"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusNone    PaymentStatus = "none"
)

type InvoiceStatus string

const (
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

type BankTransferStatus string

const (
	BankTransferStatusPending  BankTransferStatus = "pending"
	BankTransferStatusApproved BankTransferStatus = "approved"
	BankTransferStatusRejected BankTransferStatus = "rejected"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)
