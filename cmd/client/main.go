// Command client is a CLI front-end to the TCP exchange server,
// mirroring the original prototype's flag-driven single-shot usage.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"lobengine/internal/lob"
	"lobengine/internal/wire"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the exchange server")
	trader := flag.Uint64("trader", 1, "trader id")
	action := flag.String("action", "place", "action to perform: place|cancel|replace")

	sideStr := flag.String("side", "buy", "order side: buy|sell")
	typeStr := flag.String("type", "limit", "order type: limit|market")
	tifStr := flag.String("tif", "day", "time in force: day|ioc|fok")
	price := flag.Int64("price", 100, "limit price in ticks")
	qtyStr := flag.String("qty", "10", "quantity, or comma-separated list e.g. 10,20,50")

	id := flag.Uint64("id", 0, "order id (required for cancel/replace)")

	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s as trader %d\n", *serverAddr, *trader)

	go readReports(conn)

	side := lob.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = lob.Sell
	}
	orderType := lob.Limit
	if strings.ToLower(*typeStr) == "market" {
		orderType = lob.Market
	}
	tif := parseTIF(*tifStr)

	switch strings.ToLower(*action) {
	case "place":
		for _, q := range parseQuantities(*qtyStr) {
			msg := wire.NewOrderMessage{
				Trader: lob.TraderId(*trader),
				Id:     lob.OrderId(*id),
				Side:   side,
				Type:   orderType,
				TIF:    tif,
				Px:     lob.Price(*price),
				Qty:    lob.Qty(q),
			}
			if _, err := conn.Write(msg.Serialize()); err != nil {
				log.Printf("failed to place order (qty=%d): %v", q, err)
			} else {
				fmt.Printf("-> sent %s %s order qty=%d px=%d\n", strings.ToUpper(*sideStr), strings.ToUpper(*typeStr), q, *price)
			}
			time.Sleep(5 * time.Millisecond)
		}
	case "cancel":
		if *id == 0 {
			log.Fatal("-id is required for cancel")
		}
		msg := wire.CancelOrderMessage{Id: lob.OrderId(*id)}
		if _, err := conn.Write(msg.Serialize()); err != nil {
			log.Printf("failed to send cancel: %v", err)
		} else {
			fmt.Printf("-> sent cancel for id=%d\n", *id)
		}
	case "replace":
		if *id == 0 {
			log.Fatal("-id is required for replace")
		}
		msg := wire.ReplaceOrderMessage{
			Trader: lob.TraderId(*trader),
			Id:     lob.OrderId(*id),
			NewPx:  lob.Price(*price),
			NewQty: lob.Qty(mustFirstQty(*qtyStr)),
			TIF:    tif,
		}
		if _, err := conn.Write(msg.Serialize()); err != nil {
			log.Printf("failed to send replace: %v", err)
		} else {
			fmt.Printf("-> sent replace for id=%d\n", *id)
		}
	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("listening for reports... (ctrl-c to exit)")
	select {}
}

func parseTIF(s string) lob.TimeInForce {
	switch strings.ToLower(s) {
	case "ioc":
		return lob.IOC
	case "fok":
		return lob.FOK
	default:
		return lob.Day
	}
}

func parseQuantities(input string) []uint64 {
	var out []uint64
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		if v, err := strconv.ParseUint(p, 10, 64); err == nil {
			out = append(out, v)
		} else {
			log.Printf("invalid quantity %q, skipping", p)
		}
	}
	return out
}

func mustFirstQty(input string) uint64 {
	qs := parseQuantities(input)
	if len(qs) == 0 {
		return 0
	}
	return qs[0]
}

func readReports(conn net.Conn) {
	for {
		header := make([]byte, 38)
		if _, err := io.ReadFull(conn, header); err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}
		errLen := binary.BigEndian.Uint32(header[34:38])
		var errBuf []byte
		if errLen > 0 {
			errBuf = make([]byte, errLen)
			if _, err := io.ReadFull(conn, errBuf); err != nil {
				log.Printf("error reading report body: %v", err)
				return
			}
		}
		full := append(header, errBuf...)
		report, err := wire.ParseReport(full)
		if err != nil {
			log.Printf("error parsing report: %v", err)
			continue
		}
		printReport(report)
	}
}

func printReport(r wire.Report) {
	switch r.Kind {
	case wire.ErrorReport:
		fmt.Printf("\n[ERROR] %s\n", r.Err)
	case wire.CancelReport:
		fmt.Printf("\n[CANCEL] id=%d side=%s px=%d qty=%d\n", r.Id1, r.Side, r.Px, r.Qty)
	default:
		fmt.Printf("\n[FILL] taker=%d maker=%d side=%s px=%d qty=%d\n", r.Id1, r.Id2, r.Side, r.Px, r.Qty)
	}
}
