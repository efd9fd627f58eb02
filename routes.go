package main

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"med-watch/models"
	"med-watch/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// newRouter baut den gin-Router des View-Servers.
func newRouter(view *services.View, gatherer prometheus.Gatherer, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"score": formatScore,
	}).ParseFS(templateFS, "templates/*.html"))
	router.SetHTMLTemplate(tmpl)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	setupPageRoutes(router, view)
	setupViewRoutes(router, view, log)
	return router
}

// setupPageRoutes rendert die HTML-Ansicht.
func setupPageRoutes(router *gin.Engine, view *services.View) {
	router.GET("/", func(c *gin.Context) {
		var patch services.FiltersPatch
		if v, ok := c.GetQuery("search"); ok {
			patch.Search = &v
		}
		if v, ok := c.GetQuery("category"); ok {
			patch.Category = &v
		}
		if v, ok := c.GetQuery("organization"); ok {
			patch.Organization = &v
		}
		if v, ok := c.GetQuery("sort"); ok {
			patch.SortKey = &v
		}
		state := view.SnapshotWith(patch)
		switch state.Phase {
		case services.PhaseLoading:
			c.HTML(http.StatusOK, "loading.html", state)
		case services.PhaseFailed:
			c.HTML(http.StatusOK, "error.html", state)
		default:
			c.HTML(http.StatusOK, "index.html", state)
		}
	})
}

// setupViewRoutes stellt den Zustand der Ansicht als JSON-API bereit.
func setupViewRoutes(router *gin.Engine, view *services.View, log *zap.Logger) {
	rg := router.Group("/view")

	rg.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, view.Snapshot())
	})

	rg.PUT("/filters", func(c *gin.Context) {
		var patch services.FiltersPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		c.JSON(http.StatusOK, view.SetFilters(patch))
	})

	rg.POST("/dark-mode", func(c *gin.Context) {
		dark := view.ToggleDarkMode()
		if fromBrowser(c) {
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
		c.JSON(http.StatusOK, gin.H{"darkMode": dark})
	})

	rg.POST("/form/open", func(c *gin.Context) {
		view.OpenForm()
		if fromBrowser(c) {
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
		c.Status(http.StatusNoContent)
	})

	rg.POST("/form/close", func(c *gin.Context) {
		view.CloseForm()
		if fromBrowser(c) {
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
		c.Status(http.StatusNoContent)
	})

	rg.POST("/medications", func(c *gin.Context) {
		in, err := bindMedication(c)
		if err != nil {
			log.Debug("Invalid request body for medication", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		rec, err := view.AddMedication(*in)
		switch {
		case errors.Is(err, services.ErrNotReady):
			c.JSON(http.StatusConflict, gin.H{"error": "medication list is not loaded"})
			return
		case errors.Is(err, services.ErrInvalidMedication):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case err != nil:
			log.Error("Failed to add medication", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add medication"})
			return
		}

		if fromBrowser(c) {
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
		c.JSON(http.StatusCreated, rec)
	})
}

// medicationForm ist das Hinzufügen-Formular der HTML-Ansicht. Ein leeres
// Score-Feld bedeutet "kein Wert".
type medicationForm struct {
	Name           string   `form:"name" binding:"required"`
	Category       string   `form:"category" binding:"required"`
	Organizations  []string `form:"organizations"`
	BadEffectScore string   `form:"badEffectScore"`
}

var errMissingFields = errors.New("name and category are required")

// bindMedication liest ein neues Medikament aus einem Formular-Post oder JSON-Body.
func bindMedication(c *gin.Context) (*services.NewMedication, error) {
	if !fromBrowser(c) {
		var in services.NewMedication
		if err := c.ShouldBindJSON(&in); err != nil {
			return nil, errMissingFields
		}
		return &in, nil
	}

	var form medicationForm
	if err := c.ShouldBind(&form); err != nil {
		return nil, errMissingFields
	}
	in := &services.NewMedication{
		Name:          form.Name,
		Category:      form.Category,
		Organizations: form.Organizations,
	}
	if raw := strings.TrimSpace(form.BadEffectScore); raw != "" {
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("badEffectScore must be a number: %q", raw)
		}
		in.BadEffectScore = &score
	}
	return in, nil
}

// fromBrowser erkennt Formular-Posts der HTML-Ansicht, die per Redirect beantwortet werden.
func fromBrowser(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == gin.MIMEPOSTForm || ct == gin.MIMEMultipartPOSTForm
}

func formatScore(m models.MedicationRecord) string {
	v, ok := m.Score(models.DefaultSortKey)
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
