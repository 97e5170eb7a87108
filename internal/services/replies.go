package services

import (
	"fmt"
	"strings"
	"time"

	"autonomos/internal/core"
)

// User-facing reply texts.
const (
	HelpText = "Envie: \"Cliente — serviço — valor\". Ex: \"João — troca de óleo — 120\".\n" +
		"Comandos: \"hist\" ou \"hist João\" para ver o histórico."
	NoHistoryText      = "Sem lançamentos encontrados para esse filtro."
	TextGuidanceText   = "Não entendi. Use algo como:\n\"João — troca de óleo — 120\""
	AudioGuidanceText  = "Não entendi seu áudio. Fale algo como: \"Cliente João, troca de óleo, 120 reais\"."
	AudioReceivedText  = "Recebi seu áudio, processando..."
	GenericFailureText = "Erro ao processar sua mensagem. Tente novamente."

	savedPrefix      = "Lançamento salvo:\n"
	savedAudioPrefix = "Lançamento salvo (áudio):\n"
)

// Reply is the text the bot sends back. An empty Text means no reply.
type Reply struct {
	Text string
}

func textReply(s string) Reply {
	return Reply{Text: s}
}

// FormatConfirmation renders "<client> | <item> | R$ x.xx".
func FormatConfirmation(client, item string, amountCents int64) string {
	return fmt.Sprintf("%s | %s | %s", client, item, core.FormatAmount(amountCents))
}

func confirmationReply(source core.Source, p core.ParsedEntry) Reply {
	prefix := savedPrefix
	if source == core.SourceAudio {
		prefix = savedAudioPrefix
	}
	return textReply(prefix + FormatConfirmation(p.Client, p.Item, p.AmountCents))
}

// FormatHistoryLine renders "DD/MM · client · item · R$ x.xx" with the date in loc.
func FormatHistoryLine(row core.HistoryRow, loc *time.Location) string {
	return fmt.Sprintf("%s · %s · %s · %s",
		row.Date.In(loc).Format("02/01"), row.Client, row.Item, core.FormatAmount(row.AmountCents))
}

// FormatHistory joins history lines, or returns the empty-history text.
func FormatHistory(rows []core.HistoryRow, loc *time.Location) string {
	if len(rows) == 0 {
		return NoHistoryText
	}
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = FormatHistoryLine(row, loc)
	}
	return strings.Join(lines, "\n")
}
