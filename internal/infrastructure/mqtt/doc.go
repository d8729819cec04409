// Package mqtt connects Conductor to the Mosquitto broker.
//
// Scheduled tasks turn into device commands published here; whatever
// actuates blinds, lights, or heating at each location subscribes on
// the other side. The broker keeps the scheduler ignorant of device
// details and absorbs controller restarts.
//
// The client wraps eclipse/paho with the pieces Conductor needs:
// automatic reconnect with restored subscriptions, a retained service
// status message plus a Last Will so controllers can tell a crash
// from a clean shutdown, and health checks for the runtime loop.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Command("kitchen", "blinds")
//	client.Publish(topic, []byte(`{"action":"open"}`), 1, false)
//
//	err = client.Subscribe(mqtt.Topics{}.TaskStatus(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("%s: %s", topic, payload)
//	        return nil
//	    })
//
// Topic layout lives in topics.go. Production deployments set
// cfg.Broker.TLS; anonymous plaintext access is for local development
// only.
package mqtt
