package app

import (
	"fmt"
	"sort"
	"time"

	"xposter/internal/config"
	"xposter/internal/content"
	"xposter/internal/publisher"
	"xposter/internal/schedule"
	"xposter/internal/transport"
	"xposter/internal/transport/x"
	logx "xposter/pkg/logx"
)

// PlatformFactory builds the posting client of one account.
type PlatformFactory func(id string, creds config.Credentials, requestRate float64) (transport.Platform, error)

func xPlatform(_ string, creds config.Credentials, requestRate float64) (transport.Platform, error) {
	return x.New(x.Config{Credentials: mapCredentials(creds), RequestRate: requestRate})
}

// account is the resolved runtime view of one configured account.
type account struct {
	id      string
	loc     *time.Location
	sched   schedule.Config
	profile content.Profile
	pub     *publisher.Publisher
	log     logx.Logger
}

func (a *App) buildAccount(id string, ac config.AccountConfig) (*account, error) {
	sc, err := mapScheduleConfig(ac.Schedule)
	if err != nil {
		return nil, fmt.Errorf("accounts.%s.%w", id, err)
	}
	platform, err := a.platforms(id, ac.Credentials, a.rt.RequestRate)
	if err != nil {
		return nil, fmt.Errorf("accounts.%s: %w", id, err)
	}
	log := a.log.With(logx.String("account", id))
	return &account{
		id:      id,
		loc:     sc.Location,
		sched:   sc,
		profile: mapProfile(ac.Content),
		pub: publisher.New(platform,
			publisher.WithLogger(log.With(logx.String("comp", "publisher"))),
			publisher.WithSleep(a.sleep),
			publisher.WithMaxRetries(a.rt.MaxRetries),
			publisher.WithThreadDelay(a.rt.ThreadDelay),
		),
		log: log,
	}, nil
}

// accountIDs returns the configured ids in a stable order.
func (a *App) accountIDs() []string {
	ids := make([]string, 0, len(a.accounts))
	for id := range a.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
