package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	cors "github.com/rs/cors/wrapper/gin"

	"github.com/aibl-labs/aibl-backend/pkg/server/chain"
	"github.com/aibl-labs/aibl-backend/pkg/server/cid"
	"github.com/aibl-labs/aibl-backend/pkg/server/filestorage"
	"github.com/aibl-labs/aibl-backend/pkg/server/metadata"
	"github.com/aibl-labs/aibl-backend/pkg/server/pipeline"
)

type aiUploadRequest struct {
	ImageUrl string `json:"imageUrl" binding:"required"`
	Prompt   string `json:"prompt"`
	Title    string `json:"title"`
}

type pipelineRunRequest struct {
	ImageUrl      string `json:"imageUrl" binding:"required"`
	Prompt        string `json:"prompt" binding:"required"`
	Title         string `json:"title"`
	Blockchain    string `json:"blockchain" binding:"required"`
	WalletAddress string `json:"walletAddress" binding:"required"`
	Mode          string `json:"mode"`
}

type mintRequest struct {
	Cid           string `json:"cid" binding:"required"`
	Blockchain    string `json:"blockchain" binding:"required"`
	WalletAddress string `json:"walletAddress" binding:"required"`
}

// MIME types accepted by the standalone upload endpoint.
var allowedUploadTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"audio/mpeg":      true,
	"audio/mp3":       true,
	"video/mp4":       true,
	"video/quicktime": true,
}

func (s *Server) generateRouter() *gin.Engine {
	router := gin.Default()
	router.Use(s.corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/fetch-image", s.handleFetchImage)
	api.POST("/ai-upload/upload-to-pinata", s.handleUploadToPinata)
	api.POST("/ai-upload/run", s.handlePipelineRun)
	api.POST("/ipfs/upload", s.handleIpfsUpload)
	api.GET("/metadata/:cid", s.handleGetMetadata)
	api.POST("/nft/mint", s.handleMint)

	return router
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	options := cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}

	if s.frontendUrl != "" {
		options.AllowedOrigins = []string{s.frontendUrl}
	} else {
		options.AllowOriginFunc = func(origin string) bool {
			return true
		}
	}

	return cors.New(options)
}

func (s *Server) handleFetchImage(c *gin.Context) {
	imageUrl := c.Query("imageUrl")
	if imageUrl == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image URL is required"})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, imageUrl, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer resp.Body.Close()

	c.DataFromReader(resp.StatusCode, resp.ContentLength, resp.Header.Get("Content-Type"), resp.Body, nil)
}

// handleUploadToPinata runs the pinning stages: pin the image, then pin the
// metadata document referencing it.
func (s *Server) handleUploadToPinata(c *gin.Context) {
	var req aiUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image URL is required."})
		return
	}

	image, err := s.fetchImageBytes(c.Request.Context(), req.ImageUrl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result, err := s.nftUploader.Upload(c.Request.Context(), image, "transformed.png", req.Title, req.Prompt)
	if err != nil {
		c.JSON(pinStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"imageIpfsUrl":    result.Image.GatewayURL,
		"metadataIpfsUrl": result.Metadata.GatewayURL,
		"metadata":        result.Document,
	})
}

func (s *Server) handlePipelineRun(c *gin.Context) {
	var req pipelineRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode := pipeline.ModeRelay
	if req.Mode == "direct" {
		if !s.directMode {
			c.JSON(http.StatusBadRequest, gin.H{"error": "direct minting is not enabled"})
			return
		}
		mode = pipeline.ModeDirect
	}

	ctx := c.Request.Context()
	task := s.runs.SubmitErr(func() (*pipeline.Result, error) {
		return s.pipeline.Run(ctx, pipeline.Request{
			ImageURL:      req.ImageUrl,
			Prompt:        req.Prompt,
			Title:         req.Title,
			Network:       req.Blockchain,
			WalletAddress: req.WalletAddress,
			Mode:          mode,
		})
	})

	result, err := task.Wait()
	if err != nil {
		var stageErr *pipeline.StageError
		switch {
		case errors.As(err, &stageErr):
			c.JSON(runStatus(err), gin.H{
				"error": err.Error(),
				"stage": string(stageErr.Stage),
			})
		case errors.Is(err, pipeline.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	response := gin.H{
		"transformedUrl":  result.TransformedURL,
		"imageIpfsUrl":    result.Image.GatewayURL,
		"metadataIpfsUrl": result.Metadata.GatewayURL,
		"metadata":        result.Document,
	}
	if result.Tx != nil {
		response["mintTransaction"] = result.Tx
	}
	if result.Receipt != nil {
		response["receipt"] = result.Receipt
	}

	c.JSON(http.StatusOK, response)
}

func (s *Server) handleIpfsUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No file uploaded"})
		return
	}

	if fileHeader.Size > s.maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "File is too large"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedUploadTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid file type. Only images, audio, and video files are allowed.",
		})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	asset, err := s.uploader.PinFile(c.Request.Context(), data, fileHeader.Filename, filestorage.PinMeta{
		Name:      fileHeader.Filename,
		KeyValues: map[string]string{"uploadedBy": "AIBL"},
	})
	if err != nil {
		c.JSON(pinStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cid":     asset.Cid,
		"url":     asset.GatewayURL,
	})
}

func (s *Server) handleGetMetadata(c *gin.Context) {
	document, err := s.resolver.Resolve(c.Request.Context(), c.Param("cid"))
	switch {
	case errors.Is(err, cid.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid IPFS CID format"})
	case errors.Is(err, metadata.ErrInvalidFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid metadata format"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch metadata"})
	default:
		c.JSON(http.StatusOK, document)
	}
}

// handleMint builds an unsigned mint transaction for an external wallet.
func (s *Server) handleMint(c *gin.Context) {
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := s.minter.BuildTransaction(c.Request.Context(), chain.MintRequest{
		Cid:           req.Cid,
		Network:       req.Blockchain,
		WalletAddress: req.WalletAddress,
	})
	switch {
	case errors.Is(err, cid.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid IPFS CID format"})
	case errors.Is(err, chain.ErrUnsupportedNetwork):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported blockchain network"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, tx)
	}
}

func pinStatus(err error) int {
	if errors.Is(err, filestorage.ErrTooLarge) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func runStatus(err error) int {
	switch {
	case errors.Is(err, cid.ErrInvalid), errors.Is(err, chain.ErrUnsupportedNetwork), errors.Is(err, filestorage.ErrTooLarge):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
