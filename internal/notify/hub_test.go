package notify

import "testing"

func TestHubFanout(t *testing.T) {
	hub := NewHub()

	var tasks, children []Event
	unsubTasks := hub.Subscribe(CollectionTasks, func(ev Event) {
		tasks = append(tasks, ev)
	})
	hub.Subscribe(CollectionChildren, func(ev Event) {
		children = append(children, ev)
	})

	hub.Publish(Event{Collection: CollectionTasks, Op: OpSubmitted, ID: "t1", ParentID: "p1"})
	hub.Publish(Event{Collection: CollectionChildren, Op: OpPaired, ID: "c1", ParentID: "p1"})

	if len(tasks) != 1 || tasks[0].Op != OpSubmitted || tasks[0].ID != "t1" {
		t.Errorf("task events = %+v, want one submitted t1", tasks)
	}
	if len(children) != 1 || children[0].Op != OpPaired {
		t.Errorf("child events = %+v, want one paired c1", children)
	}

	unsubTasks()
	hub.Publish(Event{Collection: CollectionTasks, Op: OpDeleted, ID: "t1"})
	if len(tasks) != 1 {
		t.Error("unsubscribed consumer still received an event")
	}
}

func TestHubMultipleSubscribers(t *testing.T) {
	hub := NewHub()

	var a, b int
	hub.Subscribe(CollectionRewards, func(Event) { a++ })
	hub.Subscribe(CollectionRewards, func(Event) { b++ })

	hub.Publish(Event{Collection: CollectionRewards, Op: OpRedeemed, ID: "r1"})
	if a != 1 || b != 1 {
		t.Errorf("deliveries = %d/%d, want 1/1", a, b)
	}

	// No subscribers for the collection is fine.
	hub.Publish(Event{Collection: CollectionParents, Op: OpCreated, ID: "p1"})
}
