package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayane-t/mochimono/internal/model"
	"github.com/ayane-t/mochimono/internal/store"
)

var addFlags struct {
	name, nameEN, generic, genericEN string
	description, notes, category     string
	condition, action                string
	quantity                         int
	onlineLow, onlineHigh            int64
	onlineConf                       float64
	thriftLow, thriftHigh            int64
	thriftConf                       float64
	disposalCost                     int64
	marketplaces, queries, keywords  []string
	image                            string
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an item record",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		item := &model.Item{
			Name:         addFlags.name,
			NameEN:       addFlags.nameEN,
			GenericName:  addFlags.generic,
			GenericEN:    addFlags.genericEN,
			Description:  addFlags.description,
			SpecialNotes: addFlags.notes,
			Category:     addFlags.category,
			Condition:    model.Condition(addFlags.condition),
			Quantity:     addFlags.quantity,
			OnlinePrice: model.PriceEstimate{
				Low: addFlags.onlineLow, High: addFlags.onlineHigh, Confidence: addFlags.onlineConf,
			},
			ThriftPrice: model.PriceEstimate{
				Low: addFlags.thriftLow, High: addFlags.thriftHigh, Confidence: addFlags.thriftConf,
			},
			RecommendedAction: model.Action(addFlags.action),
			Marketplaces:      addFlags.marketplaces,
			SearchQueries:     addFlags.queries,
			Keywords:          addFlags.keywords,
		}
		if cmd.Flags().Changed("disposal-cost") {
			c := addFlags.disposalCost
			item.DisposalCost = &c
		}

		id, err := a.store.Add(cmd.Context(), a.scope(), item)
		if err != nil {
			return err
		}

		if addFlags.image != "" {
			data, err := os.ReadFile(addFlags.image)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			if err := a.store.SetImages(cmd.Context(), id, data, nil); err != nil {
				return err
			}
		}

		fmt.Println(id)
		return nil
	},
}

var getJSON bool

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		item, ok, err := a.store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("not found")
			return nil
		}

		if getJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(item)
		}
		printItem(item)
		return nil
	},
}

var listFlags struct {
	action   string
	category string
	asJSON   bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List items visible in the current scope, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, scope := cmd.Context(), a.scope()
		var items []*model.Item
		switch {
		case listFlags.action != "":
			items, err = a.store.FilterByAction(ctx, model.Action(listFlags.action), scope)
		case listFlags.category != "":
			items, err = a.store.FilterByCategory(ctx, listFlags.category, scope)
		default:
			items, err = a.store.List(ctx, scope)
		}
		if err != nil {
			return err
		}

		return printItems(items, listFlags.asJSON)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search items by text across names, notes, and keywords",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		query := ""
		if len(args) > 0 {
			query = args[0]
		}
		items, err := a.store.Search(cmd.Context(), query, a.scope())
		if err != nil {
			return err
		}
		return printItems(items, listFlags.asJSON)
	},
}

var updateFlags struct {
	name, nameEN, description, notes string
	category, condition, action      string
	quantity                         int
	disposalCost                     int64
	clearDisposal                    bool
	keywords                         []string
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields of an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		var patch store.ItemPatch
		flags := cmd.Flags()
		if flags.Changed("name") {
			patch.Name = &updateFlags.name
		}
		if flags.Changed("name-en") {
			patch.NameEN = &updateFlags.nameEN
		}
		if flags.Changed("desc") {
			patch.Description = &updateFlags.description
		}
		if flags.Changed("notes") {
			patch.SpecialNotes = &updateFlags.notes
		}
		if flags.Changed("category") {
			patch.Category = &updateFlags.category
		}
		if flags.Changed("condition") {
			c := model.Condition(updateFlags.condition)
			patch.Condition = &c
		}
		if flags.Changed("action") {
			ac := model.Action(updateFlags.action)
			patch.RecommendedAction = &ac
		}
		if flags.Changed("quantity") {
			patch.Quantity = &updateFlags.quantity
		}
		if flags.Changed("disposal-cost") {
			patch.DisposalCost = &updateFlags.disposalCost
		}
		if updateFlags.clearDisposal {
			patch.ClearDisposalCost = true
		}
		if flags.Changed("keyword") {
			patch.Keywords = &updateFlags.keywords
		}

		item, err := a.store.Update(cmd.Context(), args[0], patch)
		if err != nil {
			return err
		}
		printItem(item)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an item (no error if it does not exist)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return a.store.Delete(cmd.Context(), args[0])
	},
}

var shareCmd = &cobra.Command{
	Use:   "share <realm-id> <item-id>...",
	Short: "Move items into a shared realm",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return a.store.ShareItems(cmd.Context(), a.scope().UserID, args[1:], args[0])
	},
}

var unshareCmd = &cobra.Command{
	Use:   "unshare <item-id>...",
	Short: "Make items private again",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return a.store.UnshareItems(cmd.Context(), a.scope().UserID, args)
	},
}

func printItems(items []*model.Item, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	for _, item := range items {
		name := item.Name
		if item.NameEN != "" {
			name += " / " + item.NameEN
		}
		fmt.Printf("%s  [%s] %s x%d (%s)\n",
			item.ID, item.RecommendedAction, name, item.Quantity, item.Category)
	}
	fmt.Printf("%d item(s)\n", len(items))
	return nil
}

func printItem(item *model.Item) {
	fmt.Printf("ID:         %s\n", item.ID)
	fmt.Printf("Name:       %s", item.Name)
	if item.NameEN != "" {
		fmt.Printf(" / %s", item.NameEN)
	}
	fmt.Println()
	if item.GenericName != "" || item.GenericEN != "" {
		fmt.Printf("Generic:    %s / %s\n", item.GenericName, item.GenericEN)
	}
	fmt.Printf("Category:   %s\n", item.Category)
	fmt.Printf("Condition:  %s\n", item.Condition)
	fmt.Printf("Quantity:   %d\n", item.Quantity)
	fmt.Printf("Action:     %s\n", item.RecommendedAction)
	fmt.Printf("Online:     ¥%d-¥%d (%.0f%%)\n",
		item.OnlinePrice.Low, item.OnlinePrice.High, item.OnlinePrice.Confidence*100)
	fmt.Printf("Thrift:     ¥%d-¥%d (%.0f%%)\n",
		item.ThriftPrice.Low, item.ThriftPrice.High, item.ThriftPrice.Confidence*100)
	if item.DisposalCost != nil {
		fmt.Printf("Disposal:   ¥%d\n", *item.DisposalCost)
	}
	if item.RealmID != "" {
		fmt.Printf("Realm:      %s\n", item.RealmID)
	}
	if len(item.Keywords) > 0 {
		fmt.Printf("Keywords:   %s\n", strings.Join(item.Keywords, ", "))
	}
	if item.Rationale != "" {
		fmt.Printf("Rationale:  %s\n", item.Rationale)
	}
	fmt.Printf("Updated:    %s\n", item.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func init() {
	f := addCmd.Flags()
	f.StringVar(&addFlags.name, "name", "", "specific name (Japanese)")
	f.StringVar(&addFlags.nameEN, "name-en", "", "specific name (English)")
	f.StringVar(&addFlags.generic, "generic", "", "generic name (Japanese)")
	f.StringVar(&addFlags.genericEN, "generic-en", "", "generic name (English)")
	f.StringVar(&addFlags.description, "desc", "", "free-text description")
	f.StringVar(&addFlags.notes, "notes", "", "special notes")
	f.StringVar(&addFlags.category, "category", "", "category")
	f.StringVar(&addFlags.condition, "condition", "unknown", "condition")
	f.IntVar(&addFlags.quantity, "quantity", 1, "quantity")
	f.StringVar(&addFlags.action, "action", "keep", "recommended action (keep|online|thrift|donate|trash)")
	f.Int64Var(&addFlags.onlineLow, "online-low", 0, "online price low (yen)")
	f.Int64Var(&addFlags.onlineHigh, "online-high", 0, "online price high (yen)")
	f.Float64Var(&addFlags.onlineConf, "online-conf", 0, "online price confidence (0-1)")
	f.Int64Var(&addFlags.thriftLow, "thrift-low", 0, "thrift price low (yen)")
	f.Int64Var(&addFlags.thriftHigh, "thrift-high", 0, "thrift price high (yen)")
	f.Float64Var(&addFlags.thriftConf, "thrift-conf", 0, "thrift price confidence (0-1)")
	f.Int64Var(&addFlags.disposalCost, "disposal-cost", 0, "disposal cost (yen)")
	f.StringSliceVar(&addFlags.marketplaces, "marketplace", nil, "suggested marketplace (repeatable)")
	f.StringSliceVar(&addFlags.queries, "query", nil, "suggested search query (repeatable)")
	f.StringSliceVar(&addFlags.keywords, "keyword", nil, "keyword (repeatable)")
	f.StringVar(&addFlags.image, "image", "", "attach an image file")

	getCmd.Flags().BoolVar(&getJSON, "json", false, "output JSON")
	listCmd.Flags().StringVar(&listFlags.action, "action", "", "filter by recommended action")
	listCmd.Flags().StringVar(&listFlags.category, "category", "", "filter by category")
	listCmd.Flags().BoolVar(&listFlags.asJSON, "json", false, "output JSON")
	searchCmd.Flags().BoolVar(&listFlags.asJSON, "json", false, "output JSON")

	u := updateCmd.Flags()
	u.StringVar(&updateFlags.name, "name", "", "specific name (Japanese)")
	u.StringVar(&updateFlags.nameEN, "name-en", "", "specific name (English)")
	u.StringVar(&updateFlags.description, "desc", "", "free-text description")
	u.StringVar(&updateFlags.notes, "notes", "", "special notes")
	u.StringVar(&updateFlags.category, "category", "", "category")
	u.StringVar(&updateFlags.condition, "condition", "", "condition")
	u.StringVar(&updateFlags.action, "action", "", "recommended action")
	u.IntVar(&updateFlags.quantity, "quantity", 0, "quantity")
	u.Int64Var(&updateFlags.disposalCost, "disposal-cost", 0, "disposal cost (yen)")
	u.BoolVar(&updateFlags.clearDisposal, "clear-disposal-cost", false, "remove the disposal cost")
	u.StringSliceVar(&updateFlags.keywords, "keyword", nil, "replace keywords (repeatable)")

	rootCmd.AddCommand(addCmd, getCmd, listCmd, searchCmd, updateCmd, deleteCmd, shareCmd, unshareCmd)
}
