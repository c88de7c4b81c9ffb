package insights

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/pkg/types"
)

// ClientReport bundles the stored monthly summaries with the most recent
// sync attempts per account.
type ClientReport struct {
	ClientID  string                       `json:"client_id"`
	Summaries []*models.PerformanceSummary `json:"summaries"`
	SyncLogs  []*models.SyncLog            `json:"sync_logs"`
}

// AdminOverview is the agency-wide dashboard: client counts by status and
// monthly recurring revenue from active monthly fees.
type AdminOverview struct {
	ClientsByStatus map[types.ClientStatus]int64 `json:"clients_by_status"`
	MRR             decimal.Decimal              `json:"mrr"`
}

// Report loads the client's stored summaries (newest first) plus the last
// sync log per account.
func (s *Service) Report(ctx context.Context, clientID string, months int) (*ClientReport, error) {
	if months <= 0 || months > 24 {
		months = 12
	}
	var summaries []*models.PerformanceSummary
	err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("month DESC").
		Limit(months).
		Find(&summaries).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "load summaries", err)
	}

	accounts, err := s.activeAccounts(ctx, clientID)
	if err != nil {
		return nil, err
	}
	logs := make([]*models.SyncLog, 0, len(accounts))
	for _, a := range accounts {
		var log models.SyncLog
		err := s.db.WithContext(ctx).
			Where("account_id = ?", a.ID).
			Order("started_at DESC").
			First(&log).Error
		if err != nil {
			continue
		}
		logs = append(logs, &log)
	}

	return &ClientReport{ClientID: clientID, Summaries: summaries, SyncLogs: logs}, nil
}

// Overview computes the agency dashboard numbers.
func (s *Service) Overview(ctx context.Context) (*AdminOverview, error) {
	out := &AdminOverview{
		ClientsByStatus: map[types.ClientStatus]int64{},
		MRR:             decimal.Zero,
	}

	type statusCount struct {
		Status types.ClientStatus
		N      int64
	}
	var counts []statusCount
	err := s.db.WithContext(ctx).Model(&models.Client{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "count clients", err)
	}
	for _, c := range counts {
		out.ClientsByStatus[c.Status] = c.N
	}

	var active []*models.Client
	err = s.db.WithContext(ctx).
		Where("status = ?", types.ClientStatusActive).
		Find(&active).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "load active clients", err)
	}
	for _, c := range active {
		out.MRR = out.MRR.Add(c.MonthlyFee)
	}
	out.MRR = types.Money(out.MRR)
	return out, nil
}
