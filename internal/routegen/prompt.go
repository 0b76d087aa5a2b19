package routegen

import (
	"fmt"
	"strings"

	"github.com/Temekutza/AI-assistant-for-tourists/internal/dataset"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/domain"
)

// BuildPrompt renders the guide instruction with the full catalog and
// the user's snapshot. The model is told to use only catalog objects.
func BuildPrompt(catalog *dataset.Catalog, req domain.TripRequest) string {
	var b strings.Builder
	b.WriteString("Ты — гид по Нижнему Новгороду. Ниже — полный справочник культурных объектов города.\n\n")
	b.WriteString("СПРАВОЧНИК:\n")
	b.WriteString(catalog.PromptText())
	b.WriteString("\n\nПользователь:\n")
	fmt.Fprintf(&b, "- Интересы: %s\n", req.Interests)
	fmt.Fprintf(&b, "- Время: %g ч\n", req.Hours)
	fmt.Fprintf(&b, "- Локация: %.5f, %.5f\n", req.Location.Latitude, req.Location.Longitude)
	b.WriteString("\nСоставь маршрут, используя ТОЛЬКО объекты из справочника. Не выдумывай ничего.\n")
	b.WriteString("Пиши связным текстом на русском. Закончи позитивно.\n")
	return b.String()
}
