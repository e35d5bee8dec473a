package certificate

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"bloodbank/apperr"
	"bloodbank/models"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

type Registrations interface {
	GetForDonor(ctx context.Context, donorID, regID string) (*models.RegistrationView, error)
}

type Donors interface {
	FindDonor(ctx context.Context, id string) (*models.Donor, error)
}

type Service struct {
	regs   Registrations
	donors Donors
	secret []byte
}

func NewService(regs Registrations, donors Donors, secret []byte) *Service {
	return &Service{regs: regs, donors: donors, secret: secret}
}

// Payload is the signed content of a certificate QR code.
type Payload struct {
	RegistrationID string `json:"registrationId"`
	CampID         string `json:"campId"`
	DonorID        string `json:"donorId"`
}

func (s *Service) signature(data string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// Sign returns registrationId|campId|donorId|signature.
func (s *Service) Sign(p Payload) string {
	data := strings.Join([]string{p.RegistrationID, p.CampID, p.DonorID}, "|")
	return data + "|" + s.signature(data)
}

// Verify checks a scanned code and returns what it certifies.
func (s *Service) Verify(code string) (*Payload, error) {
	parts := strings.Split(code, "|")
	if len(parts) != 4 {
		return nil, apperr.Validation("Malformed certificate code")
	}
	data := strings.Join(parts[:3], "|")
	if !hmac.Equal([]byte(parts[3]), []byte(s.signature(data))) {
		return nil, apperr.Forbidden("Certificate signature does not match")
	}
	return &Payload{RegistrationID: parts[0], CampID: parts[1], DonorID: parts[2]}, nil
}

// Render builds the PDF certificate for one of donorID's Donated registrations.
func (s *Service) Render(ctx context.Context, donorID, regID string) ([]byte, error) {
	reg, err := s.regs.GetForDonor(ctx, donorID, regID)
	if err != nil {
		return nil, err
	}
	if reg.Status != models.RegistrationDonated {
		return nil, apperr.Conflict("Certificates are only issued for completed donations")
	}
	donor, err := s.donors.FindDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}

	code := s.Sign(Payload{RegistrationID: reg.ID, CampID: reg.Camp.ID, DonorID: donorID})
	qrPNG, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return nil, apperr.Internal("encode certificate qr", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Blood Donation Certificate", true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 22)
	pdf.CellFormat(0, 14, "Certificate of Blood Donation", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 13)
	pdf.MultiCell(0, 8, fmt.Sprintf("This certifies that %s (blood group %s) donated %d ml of blood at %s.",
		donor.FullName, donor.BloodGroup, reg.QuantityML, reg.Camp.Title), "", "L", false)
	pdf.Ln(4)

	rows := [][2]string{
		{"Date", reg.DonationDate.Format("02 Jan 2006")},
		{"Venue", strings.Trim(strings.Join([]string{reg.Camp.Location.Venue, reg.Camp.Location.City}, ", "), ", ")},
		{"Organised by", reg.Camp.HospitalName},
		{"Registration", reg.ID},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(45, 8, row[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		pdf.CellFormat(0, 8, row[1], "", 1, "L", false, 0, "")
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 110, 45, 45, false, opts, 0, "")
	pdf.SetXY(140, 157)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(65, 5, "Scan to verify", "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperr.Internal("render certificate", err)
	}
	return buf.Bytes(), nil
}
