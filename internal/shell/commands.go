package shell

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fjod/storefront/internal/domain"
)

func (s *Shell) categories(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	categories, err := s.app.Categories(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		s.printf("no categories\n")
		return nil
	}
	for _, c := range categories {
		s.printf("  %s\n", c)
	}
	return nil
}

func (s *Shell) products(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	products, err := s.app.Products(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if len(products) == 0 {
		s.printf("no products\n")
		return nil
	}

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, p := range products {
		fmt.Fprintf(tw, "  %s\t%s\t$%s\t%.1f (%d)\n", p.ID, p.Title, p.Price.StringFixed(2), p.Rating.Rate, p.Rating.Count)
	}
	return tw.Flush()
}

func (s *Shell) show(_ context.Context, args []string) error {
	id, err := oneArg(args)
	if err != nil {
		return err
	}
	p, err := s.app.Product(domain.ID(id))
	if err != nil {
		return err
	}
	s.printf("%s\n  price:  $%s\n  rating: %.1f (%d reviews)\n  image:  %s\n\n%s\n",
		p.Title, p.Price.StringFixed(2), p.Rating.Rate, p.Rating.Count, p.Image, p.Description)
	return nil
}

func (s *Shell) add(_ context.Context, args []string) error {
	id, err := oneArg(args)
	if err != nil {
		return err
	}
	p, err := s.app.AddToCart(domain.ID(id))
	if err != nil {
		return err
	}
	s.printf("added %s to cart\n", p.Title)
	return nil
}

func (s *Shell) inc(ctx context.Context, args []string) error {
	id, err := oneArg(args)
	if err != nil {
		return err
	}
	s.app.Cart.Increase(domain.ID(id))
	return s.cart(ctx, nil)
}

func (s *Shell) dec(ctx context.Context, args []string) error {
	id, err := oneArg(args)
	if err != nil {
		return err
	}
	s.app.Cart.Decrease(domain.ID(id))
	return s.cart(ctx, nil)
}

func (s *Shell) cart(_ context.Context, _ []string) error {
	if s.app.Cart.IsEmpty() {
		s.printf("cart is empty\n")
		return nil
	}

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, item := range s.app.Cart.Items() {
		fmt.Fprintf(tw, "  %s\t%s\tx%d\t$%s\n", item.ProductID, item.Title, item.Quantity, item.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(tw, "  \ttotal\t%d\t$%s\n", s.app.Cart.TotalQuantity(), s.app.Cart.TotalPrice().StringFixed(2))
	return tw.Flush()
}

func (s *Shell) clear(_ context.Context, _ []string) error {
	s.app.Cart.Clear()
	s.printf("cart cleared\n")
	return nil
}

func (s *Shell) checkout(ctx context.Context, _ []string) error {
	snap, err := s.app.Checkout.Checkout(ctx)
	if err != nil {
		return err
	}
	s.printf("order placed: %d items, $%s\n", snap.TotalQuantity, snap.TotalPrice.StringFixed(2))
	return nil
}

func (s *Shell) signUp(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	sess, err := s.app.Auth.SignUp(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	s.printf("signed up as %s\n", sess.Name)
	return nil
}

func (s *Shell) signIn(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	sess, err := s.app.Auth.SignIn(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	s.printf("logged in as %s\n", sess.Name)
	return nil
}

func (s *Shell) signOut(ctx context.Context, _ []string) error {
	if err := s.app.SignOut(ctx); err != nil {
		return err
	}
	s.printf("signed out\n")
	return nil
}

func (s *Shell) whoami(_ context.Context, _ []string) error {
	sess, ok := s.app.Auth.Session()
	if !ok {
		return domain.ErrUnauthenticated
	}
	s.printf("%s <%s> (id %s)\n", sess.Name, sess.Email, sess.UserID)
	return nil
}

func (s *Shell) profile(ctx context.Context, args []string) error {
	var name, password string
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		switch {
		case ok && key == "name":
			name = value
		case ok && key == "password":
			password = value
		default:
			return errUsage
		}
	}
	if err := s.app.Auth.UpdateProfile(ctx, name, password); err != nil {
		return err
	}
	s.printf("profile updated\n")
	return nil
}

func (s *Shell) orders(ctx context.Context, _ []string) error {
	if err := s.app.Orders.Refresh(ctx); err != nil {
		return err
	}
	s.printOrders()
	return nil
}

func (s *Shell) printOrders() {
	groups := s.app.Orders.Grouped()
	if len(groups) == 0 {
		s.printf("no orders yet\n")
		return
	}
	for _, g := range groups {
		s.printf("%s\n", strings.ToUpper(g.Status.String()))
		for _, o := range g.Orders {
			s.printf("  #%s  $%s\n", o.ID, o.TotalAmount.StringFixed(2))
			if !o.Expanded {
				continue
			}
			if o.ItemsErr != nil {
				s.printf("    items unavailable\n")
				continue
			}
			for _, item := range o.LineItems {
				s.printf("    product %s x%d @ $%s\n", item.ProductID, item.Quantity, item.UnitPrice.StringFixed(2))
			}
		}
	}
}

func (s *Shell) toggle(_ context.Context, args []string) error {
	id, err := oneArg(args)
	if err != nil {
		return err
	}
	if !s.app.Orders.ToggleExpand(domain.ID(id)) {
		return fmt.Errorf("%w: no order %s, run orders first", domain.ErrValidation, id)
	}
	s.printOrders()
	return nil
}

func (s *Shell) pay(ctx context.Context, args []string) error {
	return s.advance(ctx, args, domain.OrderStatusNew)
}

func (s *Shell) receive(ctx context.Context, args []string) error {
	return s.advance(ctx, args, domain.OrderStatusPaid)
}

// advance moves an order on from the status the command applies to.
func (s *Shell) advance(ctx context.Context, args []string, from domain.OrderStatus) error {
	id, err := oneArg(args)
	if err != nil {
		return err
	}
	o, ok := s.app.Orders.Order(domain.ID(id))
	if !ok {
		return fmt.Errorf("%w: no order %s, run orders first", domain.ErrValidation, id)
	}
	if o.Status != from {
		return fmt.Errorf("%w: order %s is %s", domain.ErrValidation, id, o.Status)
	}
	if err := s.app.Orders.Advance(ctx, o.ID, o.Status); err != nil {
		return err
	}
	s.printf("order status updated\n")
	return nil
}
