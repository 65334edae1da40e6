// Package dependency wires the core chattmt services using go.uber.org/dig.
package dependency

import (
	"go.uber.org/dig"

	"github.com/chattmt/chattmt/internal/autosave"
	"github.com/chattmt/chattmt/internal/config"
	"github.com/chattmt/chattmt/internal/pipeline"
	"github.com/chattmt/chattmt/internal/providers"
	"github.com/chattmt/chattmt/internal/schema"
	"github.com/chattmt/chattmt/internal/session"
)

// Container holds the resolved service singletons. Callers use the typed
// getters; they never need to import dig directly.
type Container struct {
	cfg      *config.Config
	provider schema.LLMProvider
	sessions *session.Manager
	autosave *autosave.Service
}

func (c *Container) Config() *config.Config       { return c.cfg }
func (c *Container) Provider() schema.LLMProvider { return c.provider }
func (c *Container) Sessions() *session.Manager   { return c.sessions }
func (c *Container) Autosave() *autosave.Service  { return c.autosave }

// Pipeline builds a turn pipeline bound to sess.
func (c *Container) Pipeline(sess *session.Session) *pipeline.Pipeline {
	return pipeline.New(sess, c.provider, c.cfg)
}

// New builds and wires all core services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	for _, provide := range []any{
		func() *config.Config { return cfg },
		newProvider,
		newSessionManager,
		newAutosave,
	} {
		if err := d.Provide(provide); err != nil {
			return nil, err
		}
	}

	c := &Container{cfg: cfg}
	err := d.Invoke(func(p schema.LLMProvider, m *session.Manager, a *autosave.Service) {
		c.provider = p
		c.sessions = m
		c.autosave = a
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newProvider(cfg *config.Config) schema.LLMProvider {
	return providers.NewOpenAIProvider(cfg.OpenAI)
}

func newSessionManager(cfg *config.Config, provider schema.LLMProvider) (*session.Manager, error) {
	return session.NewManager(cfg.Sessions.Dir, provider, cfg.Memory, cfg.Stages.Summarizer)
}

func newAutosave(cfg *config.Config, manager *session.Manager) (*autosave.Service, error) {
	return autosave.New(manager, cfg.Autosave.Schedule)
}
