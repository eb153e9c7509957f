package service

import (
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/invoicelens/invoice-scan/client"
	"github.com/invoicelens/invoice-scan/dto"
	"github.com/invoicelens/invoice-scan/extract"
	"github.com/invoicelens/invoice-scan/storage"
)

// InvoiceService runs the upload pipeline: persist the file, recognize its
// text, extract structured fields, store the record. It also owns the
// record CRUD operations used by the review workflow.
type InvoiceService struct {
	tesseractClient *client.TesseractClient
	pdfProcessor    PDFProcessor
	extractor       *extract.Extractor
	repo            *storage.Repository
	uploadDir       string
}

func NewInvoiceService(
	tesseractClient *client.TesseractClient,
	pdfProcessor PDFProcessor,
	extractor *extract.Extractor,
	repo *storage.Repository,
	uploadDir string,
) *InvoiceService {
	return &InvoiceService{
		tesseractClient: tesseractClient,
		pdfProcessor:    pdfProcessor,
		extractor:       extractor,
		repo:            repo,
		uploadDir:       uploadDir,
	}
}

// ProcessUpload stores the uploaded file under a uuid name, runs recognition
// and extraction, and persists the result as a Pending Review record.
// Unreadable documents fail with dto.ErrUnreadableImage before any record is
// created.
func (s *InvoiceService) ProcessUpload(ctx context.Context, fileHeader *multipart.FileHeader) (*dto.UploadResponse, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	fileBytes, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	id := uuid.New().String()
	savedPath, err := s.saveUpload(id, fileHeader.Filename, fileBytes)
	if err != nil {
		return nil, err
	}

	var rec dto.RecognizedText
	var qrPayload string
	if isPDF(fileHeader) {
		rec, qrPayload, err = s.recognizePDF(fileBytes)
	} else {
		rec, err = s.tesseractClient.Recognize(savedPath)
		if err == nil {
			qrPayload = s.decodeQRFromFile(savedPath)
		}
	}
	if err != nil {
		os.Remove(savedPath)
		return nil, err
	}

	if strings.TrimSpace(rec.Text) == "" {
		os.Remove(savedPath)
		return nil, dto.ErrUnreadableImage
	}

	inv := s.extractor.Extract(rec.Text, rec.Lines)
	s.applyQRPayload(&inv, qrPayload)

	record := recordFromExtraction(id, fileHeader.Filename, savedPath, inv)
	if err := s.repo.Create(ctx, record); err != nil {
		os.Remove(savedPath)
		return nil, err
	}

	log.Printf("invoice %s processed: %d line items, %d flags", id, len(inv.Items), len(inv.Flags))

	return &dto.UploadResponse{
		ID:        record.ID,
		Filename:  record.Filename,
		ImagePath: record.ImagePath,
		Status:    record.Status,
		Extracted: inv,
	}, nil
}

func (s *InvoiceService) GetInvoice(ctx context.Context, id string) (*storage.InvoiceRecord, error) {
	return s.repo.Get(ctx, id)
}

// ListInvoices returns all records, or only those in the given status.
func (s *InvoiceService) ListInvoices(ctx context.Context, status string) ([]storage.InvoiceRecord, error) {
	if status != "" && !dto.ValidStatus(status) {
		return nil, dto.ErrInvalidStatus
	}
	return s.repo.List(ctx, status)
}

// UpdateInvoice applies user corrections to a persisted record. Nil request
// fields leave the stored value untouched; extraction is never re-run.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id string, req *dto.UpdateInvoiceRequest) (*storage.InvoiceRecord, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		if !dto.ValidStatus(*req.Status) {
			return nil, dto.ErrInvalidStatus
		}
		rec.Status = *req.Status
	}
	if req.Vendor != nil {
		rec.Vendor = req.Vendor
	}
	if req.VendorAddress != nil {
		rec.VendorAddress = req.VendorAddress
	}
	if req.VendorEmail != nil {
		rec.VendorEmail = req.VendorEmail
	}
	if req.VendorPhone != nil {
		rec.VendorPhone = req.VendorPhone
	}
	if req.InvoiceNumber != nil {
		rec.InvoiceNumber = req.InvoiceNumber
	}
	if req.InvoiceDate != nil {
		rec.InvoiceDate = req.InvoiceDate
	}
	if req.DueDate != nil {
		rec.DueDate = req.DueDate
	}
	if req.PurchaseOrder != nil {
		rec.PurchaseOrder = req.PurchaseOrder
	}
	if req.Subtotal != nil {
		rec.Subtotal = req.Subtotal
	}
	if req.Tax != nil {
		rec.Tax = req.Tax
	}
	if req.Discount != nil {
		rec.Discount = req.Discount
	}
	if req.Total != nil {
		rec.Total = req.Total
	}
	if req.Currency != nil {
		rec.Currency = *req.Currency
	}
	if req.LineItems != nil {
		rec.LineItems = storage.LineItems(req.LineItems)
	}

	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *InvoiceService) DeleteInvoice(ctx context.Context, id string) error {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if rec.ImagePath != "" {
		if err := os.Remove(rec.ImagePath); err != nil && !os.IsNotExist(err) {
			log.Printf("failed to remove stored file %s: %v", rec.ImagePath, err)
		}
	}
	return nil
}

func (s *InvoiceService) saveUpload(id, originalName string, data []byte) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(s.uploadDir, id+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return path, nil
}

// recognizePDF prefers the embedded text layer; scanned PDFs fall back to
// recognizing each page image. Position hints are only kept for single-page
// scans, where vertical order is unambiguous.
func (s *InvoiceService) recognizePDF(pdfData []byte) (dto.RecognizedText, string, error) {
	text, err := s.pdfProcessor.ExtractText(pdfData)
	if err == nil && strings.TrimSpace(text) != "" {
		return dto.RecognizedText{Text: text}, "", nil
	}

	pages, err := s.pdfProcessor.ExtractImages(pdfData)
	if err != nil {
		return dto.RecognizedText{}, "", fmt.Errorf("failed to extract page images: %w", err)
	}

	var combined dto.RecognizedText
	var qrPayload string
	var parts []string
	for _, page := range pages {
		pagePath, err := savePageImage(page)
		if err != nil {
			log.Printf("skipping pdf page: %v", err)
			continue
		}

		rec, err := s.tesseractClient.Recognize(pagePath)
		os.Remove(pagePath)
		if err != nil {
			log.Printf("skipping pdf page: %v", err)
			continue
		}
		parts = append(parts, rec.Text)
		if len(pages) == 1 {
			combined.Lines = rec.Lines
			combined.MeanConfidence = rec.MeanConfidence
		}
		if qrPayload == "" {
			qrPayload = decodeQR(page)
		}
	}
	combined.Text = strings.Join(parts, "\n")
	return combined, qrPayload, nil
}

func savePageImage(img image.Image) (string, error) {
	out, err := os.CreateTemp("", "invoice-page-*.png")
	if err != nil {
		return "", err
	}
	out.Close()
	if err := imaging.Save(img, out.Name()); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to save page image: %w", err)
	}
	return out.Name(), nil
}

func isPDF(fileHeader *multipart.FileHeader) bool {
	if strings.Contains(fileHeader.Header.Get("Content-Type"), "pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf")
}

func (s *InvoiceService) decodeQRFromFile(path string) string {
	img, err := imaging.Open(path)
	if err != nil {
		return ""
	}
	return decodeQR(img)
}

// decodeQR returns the payload of the first QR code found on the page, or
// an empty string. Many generated invoices carry one encoding the invoice
// number, which reads far more reliably than the printed digits.
func decodeQR(img image.Image) string {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return ""
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return ""
	}
	return result.GetText()
}

// applyQRPayload fills the invoice number from the QR payload when the text
// matchers found none, or overrides a low-confidence match. The engine
// itself stays pure; the supplement happens at this boundary.
func (s *InvoiceService) applyQRPayload(inv *dto.ExtractedInvoice, payload string) {
	number := parseQRInvoiceNumber(payload)
	if number == "" {
		return
	}
	if inv.InvoiceNumber != nil && inv.Confidence[dto.FieldInvoiceNumber] >= 0.90 {
		return
	}
	inv.InvoiceNumber = &number
	inv.Confidence[dto.FieldInvoiceNumber] = 0.98
}

// parseQRInvoiceNumber pulls an invoice number out of a QR payload. Two
// shapes occur in practice: key/value pairs ("invoice=INV-1;total=22.00",
// with = or : and ; or & separators) and a bare invoice number as the whole
// payload.
func parseQRInvoiceNumber(payload string) string {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return ""
	}

	pairs := strings.FieldsFunc(payload, func(r rune) bool {
		return r == ';' || r == '&' || r == '\n'
	})
	for _, pair := range pairs {
		sep := strings.IndexAny(pair, "=:")
		if sep < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(pair[:sep]))
		if key != "invoice" && key != "invoice_number" && key != "inv" {
			continue
		}
		if v := strings.TrimSpace(pair[sep+1:]); v != "" {
			return v
		}
	}

	// A bare alphanumeric payload with a digit is taken as the number
	// itself. URLs and prose are not.
	if len(pairs) == 1 && !strings.ContainsAny(payload, " /=:") && strings.ContainsAny(payload, "0123456789") {
		return payload
	}
	return ""
}

func recordFromExtraction(id, filename, savedPath string, inv dto.ExtractedInvoice) *storage.InvoiceRecord {
	return &storage.InvoiceRecord{
		ID:            id,
		Filename:      filename,
		ImagePath:     savedPath,
		Status:        dto.StatusPendingReview,
		Vendor:        inv.Vendor,
		VendorAddress: inv.VendorAddress,
		VendorEmail:   inv.VendorEmail,
		VendorPhone:   inv.VendorPhone,
		InvoiceNumber: inv.InvoiceNumber,
		InvoiceDate:   inv.InvoiceDate,
		DueDate:       inv.DueDate,
		PurchaseOrder: inv.PurchaseOrder,
		Subtotal:      inv.Subtotal,
		Tax:           inv.Tax,
		Discount:      inv.Discount,
		Total:         inv.Total,
		Currency:      inv.Currency,
		LineItems:     storage.LineItems(inv.Items),
		Flags:         storage.Flags(inv.Flags),
		RawText:       inv.RawText,
	}
}
