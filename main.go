package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/invoicelens/invoice-scan/client"
	"github.com/invoicelens/invoice-scan/config"
	"github.com/invoicelens/invoice-scan/extract"
	"github.com/invoicelens/invoice-scan/handler"
	"github.com/invoicelens/invoice-scan/service"
	"github.com/invoicelens/invoice-scan/storage"
)

func main() {
	cfg := config.LoadConfig()

	db, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	repo := storage.NewRepository(db)

	tesseractClient := client.NewTesseractClient(cfg.TesseractDataPath)
	defer tesseractClient.Close()

	pdfProcessor := service.NewPDFProcessor()

	extractor := extract.NewExtractor(extract.Options{
		DateOrder:       cfg.DateOrder,
		DefaultCurrency: cfg.DefaultCurrency,
	})

	invoiceService := service.NewInvoiceService(tesseractClient, pdfProcessor, extractor, repo, cfg.UploadDir)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, cfg.MaxFileSize)

	router := gin.Default()
	router.MaxMultipartMemory = 32 << 20

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "Invoice Scan",
		})
	})

	invoiceHandler.RegisterRoutes(router)

	log.Printf("Starting Invoice Scan Service on port %s", cfg.ServerPort)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
