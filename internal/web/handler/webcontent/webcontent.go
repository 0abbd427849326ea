// Package webcontent implements the multi-language CMS content routes.
package webcontent

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/silkcms/silk-admin/internal/auth"
	"github.com/silkcms/silk-admin/internal/blobstore"
	"github.com/silkcms/silk-admin/internal/config"
	"github.com/silkcms/silk-admin/internal/db/models"
	"github.com/silkcms/silk-admin/internal/web/handler"
	"github.com/silkcms/silk-admin/internal/web/middleware/language"
)

const (
	// Path matches both /webContents/:slug and /webContents/:slug/:lang.
	Path = "/webContents/:slug/:lang?"

	// imageSubdir is the upload-dir sub directory for content images.
	imageSubdir = "web_contents"
)

// Service is the web content handler service.
type Service struct {
	cfg         *config.Config
	db          *gorm.DB
	authService *auth.Service
	blobs       *blobstore.Store
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers the content routes behind auth, permission and language
// validation middleware.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service, blobs *blobstore.Store) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.authService = authService
	s.blobs = blobs

	authed := auth.RequireAuth(authService)

	app.Get(Path, authed, auth.RequirePermission(authService, auth.PermWebContentView), language.Validate, s.Get)
	app.Post(Path, authed, auth.RequirePermission(authService, auth.PermWebContentEdit), language.Validate, s.Post)
}

// Get returns a content record with its translation for the requested
// language. A language without a translation row falls back to "en"
// without persisting anything.
func (s *Service) Get(c *fiber.Ctx) error {
	slug := c.Params("slug")

	def, ok := DefinitionFor(slug)
	if !ok {
		return handler.FailStatus(c, fiber.StatusNotFound, "Resource not found.")
	}

	lang := language.FromCtx(c)

	var content models.WebContent
	err := s.db.Where("slug = ?", slug).First(&content).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return handler.FailStatus(c, fiber.StatusNotFound, "Web content not found.")
	}

	if err != nil {
		return s.internalError(c, err, "failed to load web content")
	}

	translation, usedLang, err := s.loadTranslation(content.ID, lang)
	if err != nil {
		return s.internalError(c, err, "failed to load translation")
	}

	return handler.OK(c, "Web content retrieved successfully",
		s.present(&content, def, lang, usedLang, translation))
}

// Post writes a content record and the translation row of one language.
// The record is created on first write; later writes upsert in place.
func (s *Service) Post(c *fiber.Ctx) error {
	slug := c.Params("slug")

	def, ok := DefinitionFor(slug)
	if !ok {
		return handler.FailStatus(c, fiber.StatusNotFound, "Resource not found.")
	}

	lang := language.FromCtx(c)

	var content models.WebContent
	if err := s.db.Where(models.WebContent{Slug: slug}).
		FirstOrCreate(&content).Error; err != nil {
		return s.internalError(c, err, "failed to upsert web content")
	}

	// Record level images: a new upload replaces the column and removes
	// the previously stored file.
	for _, field := range def.ImageFields {
		file := handler.FormFile(c, field)
		if file == nil {
			continue
		}

		path, err := s.blobs.Save(file, imageSubdir)
		if err != nil {
			return s.internalError(c, err, "failed to store content image")
		}

		column := recordImage(&content, field)
		if old := *column; old != "" {
			if err := s.blobs.Delete(old); err != nil {
				log.Warn().Err(err).Str("path", old).Msg("failed to delete replaced content image")
			}
		}

		*column = path
	}

	if err := s.db.Save(&content).Error; err != nil {
		return s.internalError(c, err, "failed to update web content")
	}

	merged, err := s.mergeTranslation(c, def)
	if err != nil {
		return handler.Fail(c, "Invalid translation payload")
	}

	// Carry-forward only considers the same language's previous row; the
	// en fallback must never leak image paths into another language.
	previous := map[string]any{}
	if prevRow, prevLang, errPrev := s.loadTranslation(content.ID, lang); errPrev == nil && prevRow != nil && prevLang == lang {
		previous = prevRow
	}

	if err := s.applySectionImages(c, def, merged, previous); err != nil {
		return s.internalError(c, err, "failed to store section image")
	}

	serialized, err := json.Marshal(merged)
	if err != nil {
		return s.internalError(c, err, "failed to serialize translation")
	}

	if err := s.upsertTranslation(content.ID, lang, string(serialized)); err != nil {
		return s.internalError(c, err, "failed to upsert translation")
	}

	return handler.OK(c, "Web content updated successfully",
		s.present(&content, def, lang, lang, merged))
}

// loadTranslation fetches the field map for (content, lang), falling back
// to "en" when the requested language has no row. The language the map
// actually came from is returned alongside.
func (s *Service) loadTranslation(contentID uint64, lang string) (map[string]any, string, error) {
	for _, candidate := range translationLanguages(lang) {
		var row models.WebContentTranslation

		err := s.db.Where("web_content_id = ? AND language = ?", contentID, candidate).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}

		if err != nil {
			return nil, "", err
		}

		fields := map[string]any{}
		if row.TranslatedValue != "" {
			if err := json.Unmarshal([]byte(row.TranslatedValue), &fields); err != nil {
				return nil, "", fmt.Errorf("corrupt translation row %d: %w", row.ID, err)
			}
		}

		return fields, candidate, nil
	}

	return nil, lang, nil
}

// translationLanguages lists the lookup order for a requested language.
func translationLanguages(lang string) []string {
	if lang == language.Default {
		return []string{lang}
	}

	return []string{lang, language.Default}
}

// mergeTranslation builds the field map to persist: base text fields from
// individual form values, overlaid by the caller's "translation" JSON map.
func (s *Service) mergeTranslation(c *fiber.Ctx, def Definition) (map[string]any, error) {
	merged := map[string]any{}

	for _, field := range def.TextFields {
		if value, present := handler.FormValue(c, field); present {
			merged[field] = value
		}
	}

	raw, present := handler.FormValue(c, "translation")
	if present && raw != "" {
		overlay := map[string]any{}
		if err := json.Unmarshal([]byte(raw), &overlay); err != nil {
			return nil, err
		}

		for key, value := range overlay {
			merged[key] = value
		}
	}

	return merged, nil
}

// applySectionImages resolves the image of every repeatable-section entry:
// an uploaded file for that index replaces (and deletes) the stored path,
// otherwise the path persisted for the same index carries forward.
func (s *Service) applySectionImages(c *fiber.Ctx, def Definition, merged, previous map[string]any) error {
	for _, section := range def.RepeatSections {
		entries := sectionEntries(merged, section)
		if entries == nil {
			continue
		}

		prevEntries := sectionEntries(previous, section)

		for i, entry := range entries {
			// Reads decorate entries with old_image and a resolved URL in
			// image; clients echo both back. Only the stored path counts.
			delete(entry, "old_image")

			prevPath := ""
			if i < len(prevEntries) {
				prevPath, _ = prevEntries[i]["image"].(string)
			}

			file := handler.FormFile(c, fmt.Sprintf("translation.%s.%d.image", section, i))
			if file == nil {
				if prevPath == "" {
					entry["image"] = nil
				} else {
					entry["image"] = prevPath
				}

				continue
			}

			path, err := s.blobs.Save(file, imageSubdir)
			if err != nil {
				return err
			}

			if prevPath != "" {
				if err := s.blobs.Delete(prevPath); err != nil {
					log.Warn().Err(err).Str("path", prevPath).Msg("failed to delete replaced section image")
				}
			}

			entry["image"] = path
		}
	}

	return nil
}

// sectionEntries extracts the entry maps of a repeatable section, in order.
// The merged map is updated in place through the returned references.
func sectionEntries(fields map[string]any, section string) []map[string]any {
	raw, ok := fields[section].([]any)
	if !ok {
		return nil
	}

	entries := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if entry, ok := item.(map[string]any); ok {
			entries = append(entries, entry)
		}
	}

	return entries
}

// upsertTranslation writes the serialized field map of (content, lang),
// keeping at most one row per pair.
func (s *Service) upsertTranslation(contentID uint64, lang, serialized string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var row models.WebContentTranslation

		err := tx.Where("web_content_id = ? AND language = ?", contentID, lang).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.WebContentTranslation{
				WebContentID:    contentID,
				Language:        lang,
				TranslatedValue: serialized,
			}).Error
		}

		if err != nil {
			return err
		}

		row.TranslatedValue = serialized

		return tx.Save(&row).Error
	})
}

// present builds the response body: record-level image URLs plus the
// translation map with repeatable-section images resolved. Each section
// entry keeps its raw stored path as old_image beside the resolved URL.
func (s *Service) present(content *models.WebContent, def Definition, requested, used string, fields map[string]any) fiber.Map {
	data := fiber.Map{
		"id":                  content.ID,
		"slug":                content.Slug,
		"language":            requested,
		"translated_language": used,
	}

	for _, field := range def.ImageFields {
		data[field] = s.imageURL(*recordImage(content, field))
	}

	if fields == nil {
		data["translation"] = nil
		return data
	}

	for _, section := range def.RepeatSections {
		for _, entry := range sectionEntries(fields, section) {
			path, _ := entry["image"].(string)
			entry["old_image"] = entry["image"]
			entry["image"] = s.imageURL(path)
		}
	}

	data["translation"] = fields

	return data
}

// recordImage maps an image field name onto its record column.
func recordImage(content *models.WebContent, field string) *string {
	switch field {
	case FieldHeaderImage:
		return &content.HeaderImage
	case FieldSecTwoImage:
		return &content.SecTwoImage
	case FieldSecFourImage:
		return &content.SecFourImage
	default:
		panic("unknown image field " + field)
	}
}

func (s *Service) imageURL(path string) any {
	if path == "" {
		return nil
	}

	return s.blobs.URL(path)
}

func (s *Service) internalError(c *fiber.Ctx, err error, msg string) error {
	log.Error().Err(err).Msg(msg)
	return handler.FailStatus(c, fiber.StatusInternalServerError, "Something went wrong!")
}
