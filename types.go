package crier

import (
	"github.com/matthewjhunter/crier/internal/articles"
	"github.com/matthewjhunter/crier/internal/config"
	"github.com/matthewjhunter/crier/internal/enrich"
	"github.com/matthewjhunter/crier/internal/fetch"
	"github.com/matthewjhunter/crier/internal/storage"
)

// Config is crier's file configuration.
type Config = config.Config

// Article is a stored article. PublishDate is the YYYY-MM-DD day it is
// indexed under; Body is empty unless the caller asked for it.
type Article = storage.Article

// Label is a user's verdict on an article: like, dislike or uncertain.
type Label = storage.Label

const (
	LabelLike      = storage.LabelLike
	LabelDislike   = storage.LabelDislike
	LabelUncertain = storage.LabelUncertain
)

// DateEntry describes one fetched date.
type DateEntry = storage.DateEntry

// RawArticle is one article as a provider returns it.
type RawArticle = fetch.RawArticle

// Provider fetches the articles published on a date.
type Provider = fetch.Provider

// ProviderFunc adapts a function to a Provider.
type ProviderFunc = fetch.Func

// Generator produces model completions for enrichment.
type Generator = enrich.Generator

type BackfillResult = articles.BackfillResult

type EnrichResult = enrich.Result

// Errors returned by the engine. Match them with errors.As.
type (
	InvalidDateError = articles.InvalidDateError
	FetchError       = articles.FetchError
	ValidationError  = articles.ValidationError
)

// ErrNotFound is returned when no stored article matches a lookup.
var ErrNotFound = storage.ErrNotFound

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads a YAML or TOML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
