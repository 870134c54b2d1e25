package payments

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PixCharge é uma cobrança PIX aguardando pagamento. O código copia-e-cola
// e o QR são devolvidos ao cliente; a compra só entra no ledger depois da
// confirmação.
type PixCharge struct {
	PurchaseID   string    `json:"purchase_id"`
	Code         string    `json:"code"` // copia-e-cola
	QRCodeBase64 string    `json:"qr_code_base64"`
	AmountCents  int64     `json:"amount_cents"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// PixGateway gera cobranças PIX estáticas a partir da chave configurada.
type PixGateway struct {
	pixKey string
	ttl    time.Duration
}

func NewPixGateway(pixKey string) *PixGateway {
	return &PixGateway{pixKey: pixKey, ttl: 30 * time.Minute}
}

// CreateCharge monta o payload BR Code da cobrança.
// purchaseID vira o txid, limitado a 25 caracteres alfanuméricos.
func (g *PixGateway) CreateCharge(amountCents int64, description string) PixCharge {
	purchaseID := "pix_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	txid := purchaseID
	if len(txid) > 25 {
		txid = txid[:25]
	}

	amount := fmt.Sprintf("%d.%02d", amountCents/100, amountCents%100)
	code := buildBRCode(g.pixKey, amount, txid, description)

	return PixCharge{
		PurchaseID:   purchaseID,
		Code:         code,
		QRCodeBase64: base64.StdEncoding.EncodeToString([]byte(code)),
		AmountCents:  amountCents,
		ExpiresAt:    time.Now().Add(g.ttl),
	}
}

// buildBRCode monta o payload EMV do PIX (BR Code) com CRC16 no final.
func buildBRCode(pixKey, amount, txid, description string) string {
	merchantAccount := emvField("00", "br.gov.bcb.pix") + emvField("01", pixKey)
	if description != "" {
		if len(description) > 40 {
			description = description[:40]
		}
		merchantAccount += emvField("02", description)
	}

	payload := emvField("00", "01") +
		emvField("26", merchantAccount) +
		emvField("52", "0000") +
		emvField("53", "986") + // BRL
		emvField("54", amount) +
		emvField("58", "BR") +
		emvField("59", "CREDANALYZER") +
		emvField("60", "SAO PAULO") +
		emvField("62", emvField("05", txid)) +
		"6304"

	return payload + fmt.Sprintf("%04X", crc16CCITT(payload))
}

func emvField(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

// crc16CCITT calcula o CRC-16/CCITT-FALSE exigido pelo campo 63 do BR Code.
func crc16CCITT(s string) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range []byte(s) {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
