package notifier

import (
	"strings"

	"github.com/socialpulse/backend/pkg/types"
)

// emailTemplate renders to subject + HTML body. Placeholders are {key} tokens
// substituted from the dispatch payload; tokens without a payload key stay
// literal, which surfaces the missing input in the delivered mail.
type emailTemplate struct {
	Title   string
	Subject string
	Body    string
}

// templates is the fixed catalogue. Every NotificationKind has exactly one
// entry; Dispatch rejects kinds outside it.
var templates = map[types.NotificationKind]emailTemplate{
	types.NotificationPaymentReceived: {
		Title:   "Payment received",
		Subject: "We received your payment of ${amount}",
		Body:    "<p>Hi {name},</p><p>Your payment of <strong>${amount}</strong> was received. Thank you!</p>",
	},
	types.NotificationInvoiceCreated: {
		Title:   "New invoice",
		Subject: "Invoice {invoice_number} for ${amount}",
		Body:    "<p>Hi {name},</p><p>Invoice <strong>{invoice_number}</strong> for <strong>${amount}</strong> is due on {due_date}.</p>",
	},
	types.NotificationInvoiceDueSoon: {
		Title:   "Invoice due soon",
		Subject: "Invoice {invoice_number} is due on {due_date}",
		Body:    "<p>Hi {name},</p><p>A friendly reminder that invoice <strong>{invoice_number}</strong> for <strong>${amount}</strong> is due on {due_date}.</p>",
	},
	types.NotificationInvoiceOverdue: {
		Title:   "Invoice overdue",
		Subject: "Invoice {invoice_number} is overdue",
		Body:    "<p>Hi {name},</p><p>Invoice <strong>{invoice_number}</strong> for <strong>${amount}</strong> was due on {due_date} and is now overdue. Please settle it as soon as possible.</p>",
	},
	types.NotificationMessageReceived: {
		Title:   "New message",
		Subject: "New message from {sender}",
		Body:    "<p>Hi {name},</p><p>You have a new message from <strong>{sender}</strong>.</p>",
	},
	types.NotificationTaskAssigned: {
		Title:   "Task assigned",
		Subject: "New task: {task}",
		Body:    "<p>Hi {name},</p><p>The task <strong>{task}</strong> was assigned to you.</p>",
	},
	types.NotificationTaskCompleted: {
		Title:   "Task completed",
		Subject: "Task completed: {task}",
		Body:    "<p>Hi {name},</p><p>The task <strong>{task}</strong> was marked completed.</p>",
	},
	types.NotificationTaskOverdue: {
		Title:   "Task overdue",
		Subject: "Task overdue: {task}",
		Body:    "<p>Hi {name},</p><p>The task <strong>{task}</strong> was due on {due_date} and is still open.</p>",
	},
	types.NotificationContentSubmitted: {
		Title:   "Content submitted",
		Subject: "Content submitted for review",
		Body:    "<p>Hi {name},</p><p>New content <strong>{content}</strong> is waiting for your review.</p>",
	},
	types.NotificationContentApproved: {
		Title:   "Content approved",
		Subject: "Your content was approved",
		Body:    "<p>Hi {name},</p><p>Your content <strong>{content}</strong> was approved.</p>",
	},
	types.NotificationContentRejected: {
		Title:   "Content rejected",
		Subject: "Your content needs changes",
		Body:    "<p>Hi {name},</p><p>Your content <strong>{content}</strong> was rejected: {reason}</p>",
	},
	types.NotificationContentPosted: {
		Title:   "Content posted",
		Subject: "Your content is live",
		Body:    "<p>Hi {name},</p><p>Your content <strong>{content}</strong> was posted on {platform}.</p>",
	},
	types.NotificationSubscriptionActivated: {
		Title:   "Subscription activated",
		Subject: "Welcome to the {plan} plan",
		Body:    "<p>Hi {name},</p><p>Your <strong>{plan}</strong> subscription is now active. Next billing date: {next_payment}.</p>",
	},
	types.NotificationSubscriptionCancelled: {
		Title:   "Subscription cancelled",
		Subject: "Your subscription was cancelled",
		Body:    "<p>Hi {name},</p><p>Your <strong>{plan}</strong> subscription has been cancelled. We are sorry to see you go.</p>",
	},
	types.NotificationSubscriptionRenewal: {
		Title:   "Renewal reminder",
		Subject: "Your subscription renews on {next_payment}",
		Body:    "<p>Hi {name},</p><p>Your <strong>{plan}</strong> subscription renews on {next_payment} for <strong>${amount}</strong>.</p>",
	},
	types.NotificationWebsitePhaseCompleted: {
		Title:   "Website phase completed",
		Subject: "Website phase completed: {phase}",
		Body:    "<p>Hi {name},</p><p>The phase <strong>{phase}</strong> of your website project is complete.</p>",
	},
	types.NotificationWebsiteDemoReady: {
		Title:   "Website demo ready",
		Subject: "Your website demo is ready",
		Body:    "<p>Hi {name},</p><p>Your website demo is ready for review: <a href=\"{url}\">{url}</a></p>",
	},
	types.NotificationCourseEnrollment: {
		Title:   "Course enrollment",
		Subject: "You are enrolled in {course}",
		Body:    "<p>Hi {name},</p><p>You are now enrolled in <strong>{course}</strong>.</p>",
	},
	types.NotificationCourseCompleted: {
		Title:   "Course completed",
		Subject: "You completed {course}",
		Body:    "<p>Hi {name},</p><p>Congratulations on completing <strong>{course}</strong>!</p>",
	},
	types.NotificationPerformanceReport: {
		Title:   "Monthly performance report",
		Subject: "Your {month} performance report is ready",
		Body:    "<p>Hi {name},</p><p>Your performance report for <strong>{month}</strong> is ready. Followers: {followers}, engagement rate: {engagement_rate}%.</p>",
	},
	types.NotificationSyncFailed: {
		Title:   "Account sync failed",
		Subject: "Sync failed for {platform} account {account}",
		Body:    "<p>Syncing the {platform} account <strong>{account}</strong> failed: {error}</p>",
	},
}

// render substitutes {key} tokens in the template from the payload.
func (t emailTemplate) render(payload map[string]string) (subject, body string) {
	subject, body = t.Subject, t.Body
	for k, v := range payload {
		token := "{" + k + "}"
		subject = strings.ReplaceAll(subject, token, v)
		body = strings.ReplaceAll(body, token, v)
	}
	return subject, body
}
