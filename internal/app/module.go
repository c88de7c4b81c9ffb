package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/socialpulse/backend/internal/app/api/server"
	"github.com/socialpulse/backend/internal/app/service/auth"
	"github.com/socialpulse/backend/internal/app/service/billing"
	"github.com/socialpulse/backend/internal/app/service/ingestion"
	"github.com/socialpulse/backend/internal/app/service/insights"
	"github.com/socialpulse/backend/internal/app/service/metricstore"
	"github.com/socialpulse/backend/internal/app/service/notifier"
	"github.com/socialpulse/backend/internal/app/service/schedule"
	"github.com/socialpulse/backend/internal/app/service/vault"
	"github.com/socialpulse/backend/internal/app/service/wallet"
	"github.com/socialpulse/backend/internal/platform/cache"
	"github.com/socialpulse/backend/internal/platform/connector"
	"github.com/socialpulse/backend/internal/platform/db"
	"github.com/socialpulse/backend/internal/platform/email"
	"github.com/socialpulse/backend/internal/platform/instagram"
	"github.com/socialpulse/backend/internal/platform/paypalclient"
	"github.com/socialpulse/backend/internal/platform/queue"
	"github.com/socialpulse/backend/internal/platform/youtube"
	"github.com/socialpulse/backend/pkg/config"
	"github.com/socialpulse/backend/pkg/logger"
	"github.com/socialpulse/backend/pkg/types"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

// bindings adapts concrete services onto the small interfaces the platform
// layer declares, and ties the vault to the connector registry after both
// exist. The vault is the registry's token codec and the registry is the
// vault's refresh path, so the link is made post-construction.
var bindings = fx.Options(
	fx.Provide(
		func(n *notifier.Service) vault.AdminNotifier { return n },
		func(v *vault.Service) connector.TokenCodec { return v },
		func(ig *instagram.Connector, yt *youtube.Connector) connector.Registry {
			return connector.Registry{
				types.PlatformInstagram: ig,
				types.PlatformYouTube:   yt,
			}
		},
		instagram.New,
		youtube.New,
	),
	fx.Invoke(func(v *vault.Service, r connector.Registry) {
		v.SetRegistry(r)
	}),
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	cache.Module,
	queue.Module,
	email.Module,
	paypalclient.Module,

	vault.Module,
	metricstore.Module,
	notifier.Module,
	billing.Module,
	wallet.Module,
	insights.Module,
	ingestion.Module,
	auth.Module,
	schedule.Module,
	server.Module,

	bindings,
)
