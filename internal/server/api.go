package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/setavenger/blindbit-tweaks/internal/database"
)

type ApiHandler struct {
	store   database.Reader
	network string
	logger  zerolog.Logger
}

func NewApiHandler(store database.Reader, network string, logger zerolog.Logger) *ApiHandler {
	return &ApiHandler{store: store, network: network, logger: logger}
}

type InfoResponse struct {
	Network string `json:"network"`
	Height  uint32 `json:"height"`
}

func (h *ApiHandler) GetInfo(c *gin.Context) {
	height, _, err := h.store.HighestBlockHeight(c.Request.Context())
	if err != nil {
		h.logger.Err(err).Msg("error fetching highest block")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "could not retrieve data from database",
		})
		return
	}
	c.JSON(http.StatusOK, InfoResponse{Network: h.network, Height: height})
}

// GetStatus returns the highest indexed height as a bare number, 0 if the
// store is empty.
func (h *ApiHandler) GetStatus(c *gin.Context) {
	height, _, err := h.store.HighestBlockHeight(c.Request.Context())
	if err != nil {
		h.logger.Err(err).Msg("error fetching highest block")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "could not retrieve data from database",
		})
		return
	}
	c.JSON(http.StatusOK, height)
}

func (h *ApiHandler) GetTweaksByBlockHash(c *gin.Context) {
	blockHash := c.GetString(blockHashKey)

	tweaks, err := h.store.TweaksByBlockHash(c.Request.Context(), blockHash)
	if err != nil {
		h.logger.Err(err).Str("blockhash", blockHash).Msg("error fetching tweaks")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "could not retrieve tweaks from database",
		})
		return
	}
	c.JSON(http.StatusOK, tweaks)
}

// GetBlockStats renders the tweak count per block as an html table.
func (h *ApiHandler) GetBlockStats(c *gin.Context) {
	metrics, err := h.store.TweakMetrics(c.Request.Context())
	if err != nil {
		h.logger.Err(err).Msg("error fetching tweak metrics")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "could not retrieve tweak metrics from database",
		})
		return
	}
	c.HTML(http.StatusOK, blockStatsTemplateName, metrics)
}
