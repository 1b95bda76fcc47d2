package service

import (
	"sattbot/models"
)

// DefaultCommandAccess maps every known command to its built-in access
// tier. A command absent from this map does not exist as far as permission
// resolution is concerned.
var DefaultCommandAccess = map[string]models.AccessLevel{
	"help":         models.AccessPublic,
	"ping":         models.AccessPublic,
	"meme":         models.AccessPublic,
	"roastme":      models.AccessPublic,
	"topchatter":   models.AccessPublic,
	"inactive":     models.AccessAdminOnly,
	"nuke":         models.AccessAdminOnly,
	"dailynews":    models.AccessPublic,
	"qotd":         models.AccessPublic,
	"qotd-channel": models.AccessAdminOnly,
	"rss-channel":  models.AccessAdminOnly,
	"rss-fetch":    models.AccessAdminOnly,
}
