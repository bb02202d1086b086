package gdbstub

import "testing"

func TestChecksumMatchesByteSum(t *testing.T) {
	got := checksum([]byte("OK"))
	// 'O' (0x4f) + 'K' (0x4b) = 0x9a
	if got != "9a" {
		t.Fatalf("want checksum 9a, got %s", got)
	}
}

func TestFramePacketRoundTrips(t *testing.T) {
	pkt := framePacket([]byte("OK"))
	want := "$OK#9a"
	if string(pkt) != want {
		t.Fatalf("want %q, got %q", want, string(pkt))
	}
}

func feedString(p *Parser, s string) []Event {
	var events []Event
	for i := 0; i < len(s); i++ {
		if ev := p.Feed(s[i]); ev.Kind != EventNone {
			events = append(events, ev)
		}
	}
	return events
}

func TestParserRecognizesWellFormedPacket(t *testing.T) {
	p := NewParser()
	events := feedString(p, "$g#67")
	if len(events) != 1 || events[0].Kind != EventPacket {
		t.Fatalf("want 1 EventPacket, got %+v", events)
	}
	if string(events[0].Data) != "g" {
		t.Fatalf("want payload %q, got %q", "g", events[0].Data)
	}
}

func TestParserNacksBadChecksum(t *testing.T) {
	p := NewParser()
	events := feedString(p, "$g#00")
	if len(events) != 1 || events[0].Kind != EventNack {
		t.Fatalf("want EventNack for a bad checksum, got %+v", events)
	}
}

func TestParserRecognizesOutOfBandBytes(t *testing.T) {
	p := NewParser()
	if ev := p.Feed('+'); ev.Kind != EventAck {
		t.Fatalf("want EventAck, got %v", ev.Kind)
	}
	if ev := p.Feed('-'); ev.Kind != EventNack {
		t.Fatalf("want EventNack, got %v", ev.Kind)
	}
	if ev := p.Feed(0x03); ev.Kind != EventInterrupt {
		t.Fatalf("want EventInterrupt, got %v", ev.Kind)
	}
}

func TestParserHandlesSplitPackets(t *testing.T) {
	p := NewParser()
	var got Event
	for _, chunk := range []string{"$g", "#", "6", "7"} {
		for i := 0; i < len(chunk); i++ {
			if ev := p.Feed(chunk[i]); ev.Kind == EventPacket {
				got = ev
			}
		}
	}
	if string(got.Data) != "g" {
		t.Fatalf("want reassembled payload %q, got %q", "g", got.Data)
	}
}
