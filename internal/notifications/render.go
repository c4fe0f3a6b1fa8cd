package notifications

import (
	"fmt"

	"github.com/doogybook/backend/internal/models"
	"github.com/doogybook/backend/pkg/queue"
)

// Render returns the title and body of the notification for p.
func Render(p queue.PlacementNotificationPayload) (title, body string) {
	switch models.PlacementEventKind(p.Kind) {
	case models.EventFosterPlaced:
		return fmt.Sprintf("%s is in foster care", p.DogName),
			fmt.Sprintf("%s was placed with a foster family on %s.", p.DogName, p.At.Format("2 Jan 2006"))
	case models.EventFosterReturned:
		return fmt.Sprintf("%s is back at the shelter", p.DogName),
			fmt.Sprintf("%s returned from foster care on %s.", p.DogName, p.At.Format("2 Jan 2006"))
	case models.EventAdoptionCompleted:
		return fmt.Sprintf("%s has been adopted", p.DogName),
			fmt.Sprintf("Ownership of %s was transferred on %s.", p.DogName, p.At.Format("2 Jan 2006"))
	default:
		return fmt.Sprintf("Update about %s", p.DogName), ""
	}
}
