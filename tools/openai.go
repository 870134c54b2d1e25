package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// ReportPlanning reúne o que o usuário informou ao solicitar a análise.
type ReportPlanning struct {
	Segment       string
	Objective     string
	CreditAmount  string
	TimeInCompany string
	DocumentsJSON string
}

const reportSystemPrompt = "Você é um analista de crédito sênior. A partir do " +
	"planejamento e da lista de documentos enviados, escreva um relatório de " +
	"análise de crédito em markdown, em português do Brasil, com as seções: " +
	"Resumo Executivo, Perfil da Empresa, Capacidade de Pagamento, Riscos " +
	"Identificados e Recomendações. Seja objetivo e fundamente cada conclusão."

// GenerateCreditReport chama a OpenAI Responses API e devolve o relatório
// em markdown.
func GenerateCreditReport(ctx context.Context, planning ReportPlanning) (string, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}
	model := getenv("OPENAI_MODEL", "gpt-4.1-mini")

	var input strings.Builder
	input.WriteString("Planejamento do cliente:\n")
	input.WriteString("- Segmento: " + planning.Segment + "\n")
	input.WriteString("- Objetivo do crédito: " + planning.Objective + "\n")
	if planning.CreditAmount != "" {
		input.WriteString("- Valor pretendido: " + planning.CreditAmount + "\n")
	}
	if planning.TimeInCompany != "" {
		input.WriteString("- Tempo de empresa: " + planning.TimeInCompany + "\n")
	}
	if planning.DocumentsJSON != "" {
		input.WriteString("\nDocumentos enviados (manifesto JSON):\n")
		input.WriteString(planning.DocumentsJSON + "\n")
	}

	reqBody := map[string]any{
		"model":        model,
		"instructions": getenv("OPENAI_SYSTEM_PROMPT", reportSystemPrompt),
		"input":        input.String(),
	}

	b, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		"https://api.openai.com/v1/responses",
		bytes.NewReader(b),
	)
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai error %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Output []struct {
			Type    string `json:"type"`
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, item := range parsed.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && strings.TrimSpace(c.Text) != "" {
					if sb.Len() > 0 {
						sb.WriteString("\n")
					}
					sb.WriteString(c.Text)
				}
			}
		}
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("empty response from model (no output_text items found)")
	}
	return out, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
