package eventbus

import "testing"

func TestKeyedPublishSubscribe(t *testing.T) {
	bus := NewKeyed[string, string](0)
	ch := bus.Subscribe("u1")
	if n := bus.Publish("u1", "hello"); n != 1 {
		t.Fatalf("expected 1 delivery got %d", n)
	}
	if v := <-ch; v != "hello" {
		t.Fatalf("expected hello got %v", v)
	}
	bus.Unsubscribe("u1", ch)
	if bus.Subscribers("u1") != 0 {
		t.Fatal("subscriber not removed")
	}
}

func TestKeyedIsolatesKeys(t *testing.T) {
	bus := NewKeyed[string, int](4)
	a := bus.Subscribe("a")
	b := bus.Subscribe("b")
	bus.Publish("a", 1)
	select {
	case v := <-b:
		t.Fatalf("b received event for a: %v", v)
	default:
	}
	if v := <-a; v != 1 {
		t.Fatalf("expected 1 got %d", v)
	}
}

func TestKeyedNoReplay(t *testing.T) {
	bus := NewKeyed[string, int](4)
	if n := bus.Publish("u1", 1); n != 0 {
		t.Fatalf("expected no delivery got %d", n)
	}
	ch := bus.Subscribe("u1")
	select {
	case v := <-ch:
		t.Fatalf("late subscriber received %v", v)
	default:
	}
}

func TestKeyedFullSubscriberDrops(t *testing.T) {
	bus := NewKeyed[string, int](1)
	ch := bus.Subscribe("u1")
	bus.Publish("u1", 1)
	if n := bus.Publish("u1", 2); n != 0 {
		t.Fatalf("expected drop, delivered %d", n)
	}
	if v := <-ch; v != 1 {
		t.Fatalf("expected 1 got %d", v)
	}
}

func TestKeyedClose(t *testing.T) {
	bus := NewKeyed[string, int](0)
	ch1 := bus.Subscribe("a")
	ch2 := bus.Subscribe("b")
	bus.Close()
	if _, ok := <-ch1; ok {
		t.Fatalf("expected ch1 closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatalf("expected ch2 closed")
	}
	if _, ok := <-bus.Subscribe("c"); ok {
		t.Fatalf("expected subscribe after close to return closed channel")
	}
}

func TestKeyedUnsubscribeAfterClose(t *testing.T) {
	bus := NewKeyed[string, int](0)
	ch := bus.Subscribe("a")
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe("a", ch)
}
