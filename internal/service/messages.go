package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/campus-booking/internal/model"
	"github.com/iliyamo/campus-booking/internal/notify"
)

const messageTimeLayout = "02 Jan 2006 15:04"

func messageTo(u model.User, subject, body string, reservationID *uint64) notify.Message {
	return notify.Message{
		RecipientID:   u.ID,
		Email:         u.Email,
		Name:          u.FullName(),
		Subject:       subject,
		Body:          body,
		ReservationID: reservationID,
	}
}

// submissionMessages builds one request notice per responsible user and a
// consolidated notice for every admin who is not already among them.
func submissionMessages(requester model.User, displayID string, created []model.Reservation,
	names map[uint64]string, responsible map[uint64][]string, responsibleUsers map[uint64]model.User,
	admins []model.User, loc *time.Location) []notify.Message {
	if len(created) == 0 {
		return nil
	}
	first := created[0].ID
	window := fmt.Sprintf("%s - %s",
		created[0].StartTime.In(loc).Format(messageTimeLayout),
		created[0].EndTime.In(loc).Format(messageTimeLayout))

	var msgs []notify.Message
	notified := make(map[uint64]bool)
	for uid, resources := range responsible {
		u, ok := responsibleUsers[uid]
		if !ok {
			continue
		}
		body := fmt.Sprintf("A reservation (%s) was requested for %s, %s. Please review it.",
			displayID, strings.Join(resources, ", "), window)
		msgs = append(msgs, messageTo(u, "New reservation request for "+strings.Join(resources, ", "), body, &first))
		notified[uid] = true
	}

	all := make([]string, 0, len(created))
	seen := make(map[string]bool)
	for _, r := range created {
		if n := names[r.ID]; n != "" && !seen[n] {
			seen[n] = true
			all = append(all, n)
		}
	}
	consolidated := fmt.Sprintf("New reservation request %s from %s for %s.",
		displayID, requester.FullName(), strings.Join(all, ", "))
	for _, a := range admins {
		if notified[a.ID] {
			continue
		}
		notified[a.ID] = true
		msgs = append(msgs, messageTo(a, "New reservation request", consolidated, &first))
	}
	return msgs
}

func decisionMessage(item model.ReservationItem, status model.ReservationStatus) notify.Message {
	verb := "approved"
	if status == model.ReservationRejected {
		verb = "rejected"
	}
	body := fmt.Sprintf("Your reservation %s for %s was %s.", item.DisplayID, item.ResourceName(), verb)
	id := item.ID
	return notify.Message{
		RecipientID:   item.UserID,
		Email:         item.User.Email,
		Name:          item.User.Name,
		Subject:       "Reservation " + verb,
		Body:          body,
		ReservationID: &id,
	}
}

func inscriptionDecisionMessage(item model.InscriptionItem, status model.InscriptionStatus) notify.Message {
	verb := "approved"
	if status == model.InscriptionRejected {
		verb = "rejected"
	}
	return notify.Message{
		RecipientID: item.UserID,
		Email:       item.User.Email,
		Name:        item.User.Name,
		Subject:     "Inscription " + verb,
		Body:        fmt.Sprintf("Your inscription to the workshop %q was %s.", item.Workshop.Name, verb),
	}
}
