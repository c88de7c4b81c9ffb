package types

// NotificationKind is the closed set of business events the dispatcher knows
// how to render and deliver. Adding a kind requires a matching email template.
type NotificationKind string

const (
	NotificationPaymentReceived        NotificationKind = "payment_received"
	NotificationInvoiceCreated         NotificationKind = "invoice_created"
	NotificationInvoiceDueSoon         NotificationKind = "invoice_due_soon"
	NotificationInvoiceOverdue         NotificationKind = "invoice_overdue"
	NotificationMessageReceived        NotificationKind = "message_received"
	NotificationTaskAssigned           NotificationKind = "task_assigned"
	NotificationTaskCompleted          NotificationKind = "task_completed"
	NotificationTaskOverdue            NotificationKind = "task_overdue"
	NotificationContentSubmitted       NotificationKind = "content_submitted"
	NotificationContentApproved        NotificationKind = "content_approved"
	NotificationContentRejected        NotificationKind = "content_rejected"
	NotificationContentPosted          NotificationKind = "content_posted"
	NotificationSubscriptionActivated  NotificationKind = "subscription_activated"
	NotificationSubscriptionCancelled  NotificationKind = "subscription_cancelled"
	NotificationSubscriptionRenewal    NotificationKind = "subscription_renewal_reminder"
	NotificationWebsitePhaseCompleted  NotificationKind = "website_phase_completed"
	NotificationWebsiteDemoReady       NotificationKind = "website_demo_ready"
	NotificationCourseEnrollment       NotificationKind = "course_enrollment"
	NotificationCourseCompleted        NotificationKind = "course_completed"
	NotificationPerformanceReport      NotificationKind = "performance_report"
	NotificationSyncFailed             NotificationKind = "sync_failed"
)

type VerificationPurpose string

const (
	VerificationPurposeRegister      VerificationPurpose = "register"
	VerificationPurposeResetPassword VerificationPurpose = "reset_password"
)
