package service

import (
	"context"
	"log"
	"time"

	"choreboard/internal/notify"
	"choreboard/internal/repository"
)

const notifyTimeout = 30 * time.Second

// Notifier turns store change events into parent emails: a pairing
// completes, or a task submission awaits approval. Sends happen on
// their own goroutine so publishers never block on SES.
type Notifier struct {
	email    *EmailService
	parents  *repository.ParentRepository
	children *repository.ChildRepository
	tasks    *repository.TaskRepository

	unsubs []func()
}

// NewNotifier creates a notifier over the given stores.
func NewNotifier(email *EmailService, parents *repository.ParentRepository, children *repository.ChildRepository, tasks *repository.TaskRepository) *Notifier {
	return &Notifier{email: email, parents: parents, children: children, tasks: tasks}
}

// Start subscribes to the hub. No-op when email is disabled.
func (n *Notifier) Start(hub *notify.Hub) {
	if !n.email.IsEnabled() {
		return
	}
	n.unsubs = append(n.unsubs,
		hub.Subscribe(notify.CollectionChildren, func(ev notify.Event) {
			if ev.Op == notify.OpPaired {
				go n.childPaired(ev)
			}
		}),
		hub.Subscribe(notify.CollectionTasks, func(ev notify.Event) {
			if ev.Op == notify.OpSubmitted {
				go n.taskSubmitted(ev)
			}
		}),
	)
}

// Stop unsubscribes from the hub.
func (n *Notifier) Stop() {
	for _, unsub := range n.unsubs {
		unsub()
	}
	n.unsubs = nil
}

func (n *Notifier) childPaired(ev notify.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	parent, err := n.parents.ParentByAccountID(ctx, ev.ParentID)
	if err != nil || parent == nil {
		if err != nil {
			log.Printf("notifier: failed to load parent %s: %v", ev.ParentID, err)
		}
		return
	}
	child, err := n.children.ChildByID(ctx, ev.ID)
	if err != nil || child == nil {
		if err != nil {
			log.Printf("notifier: failed to load child %s: %v", ev.ID, err)
		}
		return
	}
	if err := n.email.SendChildPairedEmail(ctx, parent.Email, parent.Name, child.Name); err != nil {
		log.Printf("notifier: failed to send pairing email: %v", err)
	}
}

func (n *Notifier) taskSubmitted(ev notify.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	parent, err := n.parents.ParentByAccountID(ctx, ev.ParentID)
	if err != nil || parent == nil {
		if err != nil {
			log.Printf("notifier: failed to load parent %s: %v", ev.ParentID, err)
		}
		return
	}
	task, err := n.tasks.TaskByID(ctx, ev.ID)
	if err != nil || task == nil {
		if err != nil {
			log.Printf("notifier: failed to load task %s: %v", ev.ID, err)
		}
		return
	}

	childName := "Your child"
	if task.AssignedTo != nil {
		child, err := n.children.ChildByID(ctx, *task.AssignedTo)
		if err == nil && child != nil {
			childName = child.Name
		}
	}
	if err := n.email.SendTaskSubmittedEmail(ctx, parent.Email, parent.Name, childName, task.Title); err != nil {
		log.Printf("notifier: failed to send submission email: %v", err)
	}
}
