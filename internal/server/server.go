package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/somiandras/dividend-data/internal/model"
	"github.com/somiandras/dividend-data/internal/store"
)

const defaultRangeYears = 5

// Server exposes stored securities and their history as read-only JSON.
type Server struct {
	Store store.Store

	now func() time.Time
}

// New builds an http.Server serving the data API on addr.
func New(st store.Store, addr string, allowOrigins []string) *http.Server {
	s := &Server{Store: st, now: time.Now}

	engine := gin.Default()
	if len(allowOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:  allowOrigins,
			AllowMethods:  []string{"GET", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}
	s.Routes(engine)

	return &http.Server{
		Addr:           addr,
		Handler:        engine,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

// Routes registers the data endpoints on the given engine.
func (s *Server) Routes(engine *gin.Engine) {
	engine.GET("/data/companies", s.listCompanies)
	engine.GET("/data/companies/:ticker", s.getCompany)
	engine.GET("/data/history/:ticker", s.getHistory)
}

func (s *Server) listCompanies(c *gin.Context) {
	secs, err := s.Store.Securities()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, secs)
}

func (s *Server) getCompany(c *gin.Context) {
	sec, err := s.Store.Security(c.Param("ticker"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown ticker"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sec)
}

func (s *Server) getHistory(c *gin.Context) {
	dataType := c.Query("type")
	if dataType == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "missing data type parameter"})
		return
	}

	years := defaultRangeYears
	if v := c.Query("range"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			years = n
		}
	}

	h, err := s.Store.History(c.Param("ticker"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if h == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no history for ticker"})
		return
	}

	start := s.now().AddDate(-years, 0, 0)
	switch dataType {
	case "price":
		var prices []model.PriceObservation
		for _, p := range h.Prices {
			if !p.Date.Before(start) {
				prices = append(prices, p)
			}
		}
		c.JSON(http.StatusOK, gin.H{"ticker": h.Ticker, "price": prices})
	case "dividend":
		var dividends []model.DividendObservation
		for _, d := range h.Dividends {
			if !d.Date.Before(start) {
				dividends = append(dividends, d)
			}
		}
		c.JSON(http.StatusOK, gin.H{"ticker": h.Ticker, "dividend": dividends})
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid data type parameter"})
	}
}
