package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"verdure/internal/types"
)

// fileFeed reads one notification JSON object per line. It stands in for
// the platform notification listener, which is out of scope for the core.
type fileFeed struct {
	path string
}

func (f fileFeed) ActiveNotifications(ctx context.Context) ([]types.Notification, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed file: %w", err)
	}
	defer file.Close()

	var items []types.Notification
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var n types.Notification
		if err := json.Unmarshal(line, &n); err != nil {
			return nil, fmt.Errorf("malformed notification line: %w", err)
		}
		items = append(items, n)
	}
	return items, scanner.Err()
}

// demoFeed returns a fixed set of notifications for trying the pipeline
// without a device.
type demoFeed struct{}

func (demoFeed) ActiveNotifications(ctx context.Context) ([]types.Notification, error) {
	now := time.Now().UnixMilli()
	return []types.Notification{
		{
			ID: 1, PackageName: "com.google.android.gm", AppName: "Gmail",
			Title: "URGENT: Interview tomorrow at 9am", Text: "Please confirm your availability ASAP",
			Timestamp: now - 2*60*1000, Category: "email", Priority: types.PriorityHigh, HasActions: true,
		},
		{
			ID: 2, PackageName: "com.slack", AppName: "Slack",
			Title: "Meeting in 15 minutes", Text: "Zoom link: https://zoom.us/j/123 - Please join ASAP",
			Timestamp: now - 1*60*1000, Category: "msg", Priority: types.PriorityHigh, HasActions: true,
		},
		{
			ID: 3, PackageName: "com.chase.bank", AppName: "Chase Bank",
			Title: "Security Alert: Unusual activity detected", Text: "Urgent: Please verify transaction of $500. Respond immediately.",
			Timestamp: now - 5*60*1000, Category: "msg", Priority: types.PriorityMax, HasActions: true,
		},
		{
			ID: 4, PackageName: "com.whatsapp", AppName: "WhatsApp",
			Title: "Mom", Text: "Can you call me when you get a chance?",
			Timestamp: now - 10*60*1000, Category: "msg", HasActions: true,
		},
		{
			ID: 5, PackageName: "com.instagram", AppName: "Instagram",
			Title: "New follower", Text: "john_doe started following you",
			Timestamp: now - 60*60*1000, Category: "social",
		},
		{
			ID: 6, PackageName: "com.spotify", AppName: "Spotify",
			Title: "Now Playing", Text: "Song Name - Artist",
			Timestamp: now, Category: "transport", IsOngoing: true,
		},
	}, nil
}
