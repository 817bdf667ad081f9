package relay

import (
	"testing"

	"github.com/quantumgate/quantumgate/config"
	"github.com/quantumgate/quantumgate/message"
	"github.com/quantumgate/quantumgate/peer"
	"github.com/quantumgate/quantumgate/quuid"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	commDelivered   bool
	commExtenderID  quuid.UUID
	commData        []byte
	updateDelivered bool
}

func (r *recordingDispatcher) DeliverCommunication(s *peer.Session, extenderID quuid.UUID, data []byte) error {
	r.commDelivered = true
	r.commExtenderID = extenderID
	r.commData = data
	return nil
}

func (r *recordingDispatcher) DeliverUpdate(s *peer.Session, extenderID quuid.UUID, data []byte) error {
	r.updateDelivered = true
	return nil
}

func TestHandlerRelayCreateEnqueuesStatusAndForward(t *testing.T) {
	origin := newSession("198.51.100.20:1")
	var connected string
	connector := func(addr string) (*peer.Session, error) {
		connected = addr
		return newSession(addr), nil
	}
	table := NewTable()
	router := NewRouter(table, &fakeLookup{}, config.Default().Relay, connector)
	h := NewHandler(router, table, nil)

	payload := CreatePayload{Endpoint: "203.0.113.90:9000", Hops: 1}
	require.NoError(t, h.HandleRelayCreate(origin, payload.Encode()))

	require.Equal(t, "203.0.113.90:9000", connected)

	m, ok := origin.DequeueSend()
	require.True(t, ok)
	require.Equal(t, message.KindRelayStatus, m.Kind)
	status, err := DecodeStatusPayload(m.Data)
	require.NoError(t, err)
	require.Equal(t, StatusConnected, status.Code)
}

func TestHandlerRelayTrafficForwardsToOtherLeg(t *testing.T) {
	origin := newSession("198.51.100.21:1")
	dest := newSession("198.51.100.22:1")
	table := NewTable()
	table.Create(origin, dest, "198.51.100.21:1", "198.51.100.22:1", 1)
	router := NewRouter(table, &fakeLookup{}, config.Default().Relay, nil)
	h := NewHandler(router, table, nil)

	require.NoError(t, h.HandleRelayTraffic(origin, message.KindRelayData, []byte("payload")))

	m, ok := dest.DequeueSend()
	require.True(t, ok)
	require.Equal(t, message.KindRelayData, m.Kind)
	require.Equal(t, []byte("payload"), m.Data)
}

func TestHandlerRelayCloseNotifiesOtherLegAndRemovesLink(t *testing.T) {
	origin := newSession("198.51.100.23:1")
	dest := newSession("198.51.100.24:1")
	table := NewTable()
	table.Create(origin, dest, "198.51.100.23:1", "198.51.100.24:1", 1)
	router := NewRouter(table, &fakeLookup{}, config.Default().Relay, nil)
	h := NewHandler(router, table, nil)

	require.NoError(t, h.HandleRelayClose(origin))

	m, ok := dest.DequeueSend()
	require.True(t, ok)
	status, err := DecodeStatusPayload(m.Data)
	require.NoError(t, err)
	require.Equal(t, StatusDisconnected, status.Code)

	require.Equal(t, 0, table.Len())
}

func TestHandlerRelayCloseIsNoopWhenSessionHasNoLink(t *testing.T) {
	table := NewTable()
	router := NewRouter(table, &fakeLookup{}, config.Default().Relay, nil)
	h := NewHandler(router, table, nil)

	require.NoError(t, h.HandleRelayClose(newSession("198.51.100.25:1")))
}

func TestHandlerExtenderCommunicationDispatches(t *testing.T) {
	table := NewTable()
	router := NewRouter(table, &fakeLookup{}, config.Default().Relay, nil)
	dispatcher := &recordingDispatcher{}
	h := NewHandler(router, table, dispatcher)

	s := newSession("198.51.100.26:1")
	extenderID := quuid.NewExtenderUUID()
	require.NoError(t, h.HandleExtenderCommunication(s, extenderID, []byte("ping")))

	require.True(t, dispatcher.commDelivered)
	require.Equal(t, extenderID, dispatcher.commExtenderID)
	require.Equal(t, []byte("ping"), dispatcher.commData)
}

func TestHandlerExtenderUpdateDispatches(t *testing.T) {
	table := NewTable()
	router := NewRouter(table, &fakeLookup{}, config.Default().Relay, nil)
	dispatcher := &recordingDispatcher{}
	h := NewHandler(router, table, dispatcher)

	s := newSession("198.51.100.27:1")
	require.NoError(t, h.HandleExtenderUpdate(s, quuid.NewExtenderUUID(), []byte("update")))

	require.True(t, dispatcher.updateDelivered)
}

func TestHandlerWithNilDispatcherDiscardsExtenderTraffic(t *testing.T) {
	table := NewTable()
	router := NewRouter(table, &fakeLookup{}, config.Default().Relay, nil)
	h := NewHandler(router, table, nil)

	s := newSession("198.51.100.28:1")
	require.NoError(t, h.HandleExtenderCommunication(s, quuid.NewExtenderUUID(), []byte("ignored")))
}
