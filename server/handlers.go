package server

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/snapseek/snapseek/engine/core"
	"github.com/snapseek/snapseek/engine/indexer"
	"github.com/snapseek/snapseek/engine/search"
	"github.com/snapseek/snapseek/pkg/version"
)

// maxUploadBytes bounds a single query image upload.
const maxUploadBytes = 10 << 20

type searchResponse struct {
	QueryImage   string             `json:"query_image"`
	Results      []search.Candidate `json:"results"`
	TotalResults int                `json:"total_results"`
	TopK         int                `json:"top_k"`
	Diagnostics  search.Diagnostics `json:"diagnostics"`
}

type productEntry struct {
	ID          string `json:"id"`
	ImageBase64 string `json:"image_base64"`
	Filename    string `json:"filename"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
}

type indexRequest struct {
	Items []productEntry `json:"items"`
}

type removeRequest struct {
	IDs []string `json:"ids"`
}

func registerRoutes(router *gin.Engine, svc *search.Service) {
	router.GET("/health", handleHealth)
	router.GET("/ready", handleReady(svc))
	api := router.Group("/api/v0")
	api.POST("/search", handleSearch(svc))
	api.POST("/products", handleIndex(svc))
	api.DELETE("/products", handleRemove(svc))
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.GetVersion(),
	})
}

func handleReady(svc *search.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Ready(c.Request.Context()); err != nil {
			writeProblem(c, core.NewUnavailableError("service not ready", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

func handleSearch(svc *search.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		topK := svc.TopKDefault()
		if raw := c.PostForm("top_k"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeProblem(c, core.NewInputError("top_k must be an integer", err))
				return
			}
			topK = parsed
		}
		if topK < 1 || topK > svc.TopKMax() {
			writeProblem(c, core.NewInputError(
				fmt.Sprintf("top_k must be between 1 and %d", svc.TopKMax()), nil))
			return
		}
		file, header, err := c.Request.FormFile("image")
		if err != nil {
			writeProblem(c, core.NewInputError("image file is required", err))
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			writeProblem(c, core.NewInputError("failed to read uploaded image", err))
			return
		}
		if len(data) > maxUploadBytes {
			writeProblem(c, core.NewInputError("image exceeds the upload size limit", nil))
			return
		}
		results, diag, err := svc.Query(c.Request.Context(), data, topK)
		if err != nil {
			writeProblem(c, err)
			return
		}
		c.JSON(http.StatusOK, searchResponse{
			QueryImage:   header.Filename,
			Results:      results,
			TotalResults: len(results),
			TopK:         topK,
			Diagnostics:  diag,
		})
	}
}

func handleIndex(svc *search.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req indexRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeProblem(c, core.NewInputError("invalid request body", err))
			return
		}
		if len(req.Items) == 0 {
			writeProblem(c, core.NewInputError("at least one item is required", nil))
			return
		}
		entries := make([]indexer.Entry, 0, len(req.Items))
		for i := range req.Items {
			item := req.Items[i]
			data, err := base64.StdEncoding.DecodeString(item.ImageBase64)
			if err != nil {
				writeProblem(c, core.NewInputError(
					fmt.Sprintf("item %q: image_base64 is not valid base64", item.Filename), err))
				return
			}
			entries = append(entries, indexer.Entry{
				ID:          item.ID,
				Data:        data,
				Filename:    item.Filename,
				Category:    item.Category,
				Subcategory: item.Subcategory,
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
			})
		}
		stats, err := svc.IndexBatch(c.Request.Context(), entries)
		if err != nil {
			writeProblem(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func handleRemove(svc *search.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req removeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeProblem(c, core.NewInputError("invalid request body", err))
			return
		}
		if len(req.IDs) == 0 {
			writeProblem(c, core.NewInputError("at least one id is required", nil))
			return
		}
		if err := svc.RemoveProducts(c.Request.Context(), req.IDs...); err != nil {
			writeProblem(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"removed": len(req.IDs)})
	}
}

func writeProblem(c *gin.Context, err error) {
	problem := core.ProblemFromError(err, c.Request.URL.Path)
	c.JSON(problem.Status, core.BuildProblemBody(problem))
}
