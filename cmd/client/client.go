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

	"tyr/internal/common"
	tyrNet "tyr/internal/net"
)

// reportFixedHeaderLen matches the server's report frame:
// 1+1+4+4+8+8+4 = 30 bytes.
const reportFixedHeaderLen = 30

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	action := flag.String("action", "submit", "Action to perform: ['submit', 'cancel', 'modify']")

	// Order parameters
	id := flag.Uint64("id", 0, "Order id (compulsory, caller-assigned)")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "gtc", "Order type: ['gtc', 'gfd', 'fak', 'fok', 'market']")
	price := flag.Int("price", 100, "Limit price in ticks (ignored for market orders)")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20,50)")

	flag.Parse()

	if *id == 0 {
		fmt.Println("Error: -id is compulsory and must be non-zero.")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s\n", *serverAddr)

	// Start listening for reports (async).
	go readReports(conn)

	side := common.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = common.Sell
	}
	orderType, err := parseOrderType(*typeStr)
	if err != nil {
		log.Fatalf("Invalid order type: %v", err)
	}

	switch strings.ToLower(*action) {
	case "submit":
		orderID := *id
		for _, q := range parseQuantities(*qtyStr) {
			err := sendSubmitOrder(conn, orderID, orderType, side, int32(*price), q)
			if err != nil {
				log.Printf("Failed to submit order (qty: %d): %v", q, err)
			} else {
				fmt.Printf("-> Sent %s %s order id=%d %d @ %d\n",
					strings.ToUpper(*sideStr), orderType, orderID, q, *price)
			}
			// Sequential ids when a quantity list fans out into several orders.
			orderID++
		}

	case "cancel":
		if err := sendCancelOrder(conn, *id); err != nil {
			log.Printf("Failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> Sent cancel request for id=%d\n", *id)
		}

	case "modify":
		quantities := parseQuantities(*qtyStr)
		if len(quantities) != 1 {
			log.Fatal("Error: -qty must be a single value for modify")
		}
		if err := sendModifyOrder(conn, *id, side, int32(*price), quantities[0]); err != nil {
			log.Printf("Failed to send modify request: %v", err)
		} else {
			fmt.Printf("-> Sent modify request for id=%d to %d @ %d\n", *id, quantities[0], *price)
		}

	default:
		log.Fatalf("Unknown action: %s", *action)
	}

	// Keep the client alive to receive execution reports.
	fmt.Println("\nListening for reports... (Press Ctrl+C to exit)")
	select {}
}

func parseOrderType(input string) (common.OrderType, error) {
	switch strings.ToLower(input) {
	case "gtc":
		return common.GoodTillCancel, nil
	case "gfd":
		return common.GoodForDay, nil
	case "fak", "ioc":
		return common.FillAndKill, nil
	case "fok":
		return common.FillOrKill, nil
	case "market":
		return common.Market, nil
	}
	return 0, fmt.Errorf("unknown order type %q", input)
}

// parseQuantities splits a comma-separated string into a slice of uint32
func parseQuantities(input string) []uint32 {
	parts := strings.Split(input, ",")
	var result []uint32
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if val, err := strconv.ParseUint(p, 10, 32); err == nil {
			result = append(result, uint32(val))
		} else {
			log.Printf("Warning: Invalid quantity '%s', skipping.", p)
		}
	}
	return result
}

// sendSubmitOrder constructs and sends the SubmitOrder message
func sendSubmitOrder(conn net.Conn, id uint64, orderType common.OrderType, side common.Side, price int32, qty uint32) error {
	buf := make([]byte, tyrNet.SubmitOrderMessageLen)

	binary.BigEndian.PutUint16(buf[0:2], uint16(tyrNet.SubmitOrder))
	binary.BigEndian.PutUint16(buf[2:4], uint16(orderType))
	buf[4] = byte(side)
	binary.BigEndian.PutUint32(buf[5:9], uint32(price))
	binary.BigEndian.PutUint32(buf[9:13], qty)
	binary.BigEndian.PutUint64(buf[13:21], id)

	_, err := conn.Write(buf)
	return err
}

// sendCancelOrder constructs and sends the CancelOrder message
func sendCancelOrder(conn net.Conn, id uint64) error {
	buf := make([]byte, tyrNet.CancelOrderMessageLen)

	binary.BigEndian.PutUint16(buf[0:2], uint16(tyrNet.CancelOrder))
	binary.BigEndian.PutUint64(buf[2:10], id)

	_, err := conn.Write(buf)
	return err
}

// sendModifyOrder constructs and sends the ModifyOrder message
func sendModifyOrder(conn net.Conn, id uint64, side common.Side, price int32, qty uint32) error {
	buf := make([]byte, tyrNet.ModifyOrderMessageLen)

	binary.BigEndian.PutUint16(buf[0:2], uint16(tyrNet.ModifyOrder))
	buf[2] = byte(side)
	binary.BigEndian.PutUint32(buf[3:7], uint32(price))
	binary.BigEndian.PutUint32(buf[7:11], qty)
	binary.BigEndian.PutUint64(buf[11:19], id)

	_, err := conn.Write(buf)
	return err
}

// readReports continuously reads and parses Report frames from the server
func readReports(conn net.Conn) {
	for {
		headerBuf := make([]byte, reportFixedHeaderLen)
		if _, err := io.ReadFull(conn, headerBuf); err != nil {
			if err != io.EOF {
				log.Printf("Connection lost: %v", err)
			}
			os.Exit(0)
		}

		msgType := tyrNet.ReportMessageType(headerBuf[0])
		side := common.Side(headerBuf[1])
		price := int32(binary.BigEndian.Uint32(headerBuf[2:6]))
		qty := binary.BigEndian.Uint32(headerBuf[6:10])
		orderID := binary.BigEndian.Uint64(headerBuf[10:18])
		counterpartyID := binary.BigEndian.Uint64(headerBuf[18:26])
		errStrLen := binary.BigEndian.Uint32(headerBuf[26:30])

		errStr := ""
		if errStrLen > 0 {
			varBuf := make([]byte, errStrLen)
			if _, err := io.ReadFull(conn, varBuf); err != nil {
				log.Printf("Error reading report body: %v", err)
				break
			}
			errStr = string(varBuf)
		}

		if msgType == tyrNet.ErrorReport {
			fmt.Printf("\n[SERVER ERROR] %s\n", errStr)
		} else {
			fmt.Printf("\n[EXECUTION] %s id=%d | Qty: %d | Price: %d | vs id=%d\n",
				strings.ToUpper(side.String()), orderID, qty, price, counterpartyID)
		}
	}
}
