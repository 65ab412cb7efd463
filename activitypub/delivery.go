package activitypub

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/deemkeen/markodon/db"
	"github.com/deemkeen/markodon/domain"
	"github.com/deemkeen/markodon/util"
)

// deliveryBackoffMinutes is the retry schedule; the last entry repeats
// until maxDeliveryAttempts is reached.
var deliveryBackoffMinutes = []int{1, 5, 15, 60, 240, 1440}

const maxDeliveryAttempts = 10

// StartDeliveryWorker starts a background worker that drains the
// delivery queue, signing each POST with the local actor's key.
func StartDeliveryWorker(database *db.DB, keys *KeyStore, identity domain.ActorIdentity) {
	log.Println("Starting delivery worker...")

	ticker := time.NewTicker(10 * time.Second)
	go func() {
		for range ticker.C {
			processDeliveryQueue(database, keys, identity)
		}
	}()
}

func processDeliveryQueue(database *db.DB, keys *KeyStore, identity domain.ActorIdentity) {
	err, items := database.ReadPendingDeliveries(50)
	if err != nil {
		log.Printf("DeliveryWorker: Failed to read queue: %v", err)
		return
	}

	if items == nil || len(*items) == 0 {
		return
	}

	log.Printf("DeliveryWorker: Processing %d pending deliveries", len(*items))

	for _, item := range *items {
		if err := deliverActivity(&item, keys, identity); err != nil {
			item.Attempts++
			backoffMinutes := deliveryBackoffMinutes[min(item.Attempts-1, len(deliveryBackoffMinutes)-1)]
			item.NextRetryAt = time.Now().Add(time.Duration(backoffMinutes) * time.Minute)

			if item.Attempts >= maxDeliveryAttempts {
				log.Printf("DeliveryWorker: Giving up on delivery to %s after %d attempts", item.InboxURI, item.Attempts)
				database.DeleteDelivery(item.Id)
			} else {
				log.Printf("DeliveryWorker: Delivery to %s failed (attempt %d), retry in %dm: %v",
					item.InboxURI, item.Attempts, backoffMinutes, err)
				database.UpdateDeliveryAttempt(item.Id, item.Attempts, item.NextRetryAt)
			}
		} else {
			log.Printf("DeliveryWorker: Successfully delivered to %s", item.InboxURI)
			database.DeleteDelivery(item.Id)
		}
	}
}

// deliverActivity attempts one signed POST to a remote inbox.
func deliverActivity(item *domain.DeliveryItem, keys *KeyStore, identity domain.ActorIdentity) error {
	privateKey, err := keys.SigningKey()
	if err != nil {
		return err
	}

	body := []byte(item.ActivityJSON)
	req, err := http.NewRequest("POST", item.InboxURI, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/activity+json")
	req.Header.Set("Accept", "application/activity+json")
	req.Header.Set("User-Agent", util.GetNameAndVersion())
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))

	if err := SignRequest(req, body, privateKey, identity.IRI()); err != nil {
		return err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote server returned status: %d", resp.StatusCode)
	}

	return nil
}
